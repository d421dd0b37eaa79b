// Package config loads the go-motionblend service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-motionblend/internal/log"
	"github.com/teslashibe/go-motionblend/pkg/model"
	"github.com/teslashibe/go-motionblend/pkg/transition"
)

// Defaults.
const (
	DefaultPort          = 8080
	DefaultLength        = 30
	DefaultPhaseSchedule = 1.0
	DefaultWorkers       = 4
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds the service configuration.
type Config struct {
	// ModelPath is the weights file. Empty means a freshly initialized model.
	ModelPath string `yaml:"model"`

	// SkeletonPath is a skeleton descriptor (.json/.yaml) or a BVH file.
	SkeletonPath string `yaml:"skeleton"`

	// ClipDir holds named clips served by the clip library.
	ClipDir string `yaml:"clip_dir"`

	// DBPath is the sqlite database of generated transitions. Empty
	// disables persistence.
	DBPath string `yaml:"db"`

	Port     int    `yaml:"port"`
	Backend  string `yaml:"backend"`
	Workers  int    `yaml:"workers"`
	LogLevel string `yaml:"log_level"`

	// Seed initializes a fresh model when ModelPath is empty.
	Seed uint64 `yaml:"seed"`

	Transition TransitionConfig `yaml:"transition"`
}

// TransitionConfig holds per-request defaults.
type TransitionConfig struct {
	Length        int     `yaml:"length"`
	PhaseSchedule float64 `yaml:"phase_schedule"`
	MaxLength     int     `yaml:"max_length"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Port:     DefaultPort,
		Backend:  string(model.BackendCPU),
		Workers:  DefaultWorkers,
		LogLevel: "info",
		Transition: TransitionConfig{
			Length:        DefaultLength,
			PhaseSchedule: DefaultPhaseSchedule,
			MaxLength:     transition.DefaultMaxLength,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWithOverrides loads path and applies MOTIONBLEND_* environment
// overrides. Priority (highest to lowest): environment, file, defaults.
func LoadWithOverrides(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("MOTIONBLEND_MODEL"); v != "" {
		c.ModelPath = v
	}
	if v := os.Getenv("MOTIONBLEND_SKELETON"); v != "" {
		c.SkeletonPath = v
	}
	if v := os.Getenv("MOTIONBLEND_CLIPS"); v != "" {
		c.ClipDir = v
	}
	if v := os.Getenv("MOTIONBLEND_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MOTIONBLEND_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("MOTIONBLEND_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MOTIONBLEND_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MOTIONBLEND_PORT %q", ErrInvalid, v)
		}
		c.Port = port
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	}
	if _, err := model.ParseBackend(c.Backend); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalid)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	t := c.Transition
	if t.MaxLength <= 0 {
		return fmt.Errorf("%w: max transition length must be positive", ErrInvalid)
	}
	if t.Length < 0 || t.Length > t.MaxLength {
		return fmt.Errorf("%w: transition length %d outside [0, %d]", ErrInvalid, t.Length, t.MaxLength)
	}
	if !transition.ValidSchedule(t.PhaseSchedule) {
		return fmt.Errorf("%w: phase schedule %v outside [0, 1]", ErrInvalid, t.PhaseSchedule)
	}
	return nil
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
