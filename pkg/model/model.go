// Package model holds the immutable handle to a loaded phase and manifold
// network. A Model is built once at startup and shared read-only by every
// request; nothing mutates it after New or Load returns.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/manifold"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/nn"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// Config sizes both networks.
type Config struct {
	Phase    phase.Config    `json:"phase" yaml:"phase"`
	Manifold manifold.Config `json:"manifold" yaml:"manifold"`
}

// DefaultConfig returns matching phase and manifold defaults.
func DefaultConfig() Config {
	return Config{Phase: phase.DefaultConfig(), Manifold: manifold.DefaultConfig()}
}

// Validate checks both sections and that their band counts agree.
func (c Config) Validate() error {
	if err := c.Phase.Validate(); err != nil {
		return err
	}
	if err := c.Manifold.Validate(); err != nil {
		return err
	}
	if c.Phase.Bands != c.Manifold.Bands {
		return fmt.Errorf("model: phase has %d bands, manifold expects %d", c.Phase.Bands, c.Manifold.Bands)
	}
	return nil
}

// fileConfig is the "config" section of a weights file.
type fileConfig struct {
	Config
	Joints    int          `json:"joints"`
	Reference [][4]float64 `json:"reference"`
}

// Model bundles the networks, the skeleton they were built for and the
// reference pose decoded deltas are added to.
type Model struct {
	skel      *skeleton.Skeleton
	cfg       Config
	phase     *phase.Encoder
	encoder   *manifold.Encoder
	decoder   *manifold.Decoder
	reference motion.Frame
	params    *nn.Params
}

func build(skel *skeleton.Skeleton, cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pe, err := phase.NewEncoder(skel, cfg.Phase)
	if err != nil {
		return nil, err
	}
	enc, err := manifold.NewEncoder(skel, cfg.Manifold)
	if err != nil {
		return nil, err
	}
	dec, err := manifold.NewDecoder(skel, cfg.Manifold)
	if err != nil {
		return nil, err
	}

	m := &Model{
		skel:      skel,
		cfg:       cfg,
		phase:     pe,
		encoder:   enc,
		decoder:   dec,
		reference: motion.RestFrame(skel.NumJoints()),
		params:    nn.NewParams(),
	}
	pe.Register(m.params)
	enc.Register(m.params)
	dec.Register(m.params)
	return m, nil
}

// New builds a freshly initialized model. The decoder's output layer starts
// at zero, so an untrained model decodes every frame to the reference pose.
func New(skel *skeleton.Skeleton, cfg Config, seed uint64) (*Model, error) {
	m, err := build(skel, cfg)
	if err != nil {
		return nil, err
	}
	m.params.Init(seed, manifold.OutputPrefix)
	return m, nil
}

// Load reads a weights file for skel.
func Load(path string, skel *skeleton.Skeleton) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()
	return Read(f, skel)
}

// Read decodes a weights file for skel. A file written for a different joint
// count fails with a skeleton.IncompatibleError.
func Read(r io.Reader, skel *skeleton.Skeleton) (*Model, error) {
	file, err := nn.ReadFile(r)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if err := json.Unmarshal(file.Config, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode model config: %w", err)
	}
	if err := skel.CheckJointCount("model", fc.Joints); err != nil {
		return nil, err
	}

	m, err := build(skel, fc.Config)
	if err != nil {
		return nil, err
	}
	if err := m.params.Import(file.Tensors); err != nil {
		return nil, err
	}

	if len(fc.Reference) > 0 {
		if err := skel.CheckJointCount("reference pose", len(fc.Reference)); err != nil {
			return nil, err
		}
		for j, q := range fc.Reference {
			m.reference.Rotations[j] = rotation.Normalize(quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]})
		}
	}
	return m, nil
}

// Save writes the model as a weights file.
func (m *Model) Save(w io.Writer) error {
	fc := fileConfig{Config: m.cfg, Joints: m.skel.NumJoints(), Reference: make([][4]float64, m.skel.NumJoints())}
	for j, q := range m.reference.Rotations {
		fc.Reference[j] = [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
	}
	return nn.WriteFile(w, fc, m.params)
}

// SaveFile writes the model to path.
func (m *Model) SaveFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return m.Save(f)
}

// WithReference returns a copy of m whose reference pose is derived from
// frame. The networks are shared with m.
func (m *Model) WithReference(frame motion.Frame) (*Model, error) {
	if err := m.skel.CheckJointCount("reference pose", frame.NumJoints()); err != nil {
		return nil, err
	}
	if !frame.IsFinite() {
		return nil, fmt.Errorf("%w: reference pose", motion.ErrNonFinite)
	}
	cp := *m
	cp.reference = ReferenceFromFrame(frame)
	return &cp, nil
}

// ReferenceFromFrame turns a frame into a reference pose: the root sits at
// the origin and its rotation carries no heading.
func ReferenceFromFrame(frame motion.Frame) motion.Frame {
	ref := frame.Clone()
	ref.Root = r3.Vec{}
	for j := range ref.Rotations {
		ref.Rotations[j] = rotation.Normalize(ref.Rotations[j])
	}
	ref.Rotations[0] = rotation.RemoveHeading(ref.Rotations[0])
	return ref
}

// Skeleton returns the skeleton the model was built for.
func (m *Model) Skeleton() *skeleton.Skeleton { return m.skel }

// Config returns the network configuration.
func (m *Model) Config() Config { return m.cfg }

// Phase returns the phase encoder.
func (m *Model) Phase() *phase.Encoder { return m.phase }

// Encoder returns the manifold encoder.
func (m *Model) Encoder() *manifold.Encoder { return m.encoder }

// Decoder returns the manifold decoder.
func (m *Model) Decoder() *manifold.Decoder { return m.decoder }

// Reference returns a copy of the reference pose.
func (m *Model) Reference() motion.Frame { return m.reference.Clone() }

// WindowLength returns the number of frames the encoders consume.
func (m *Model) WindowLength() int { return m.cfg.Phase.WindowLength }

// NumParams returns the number of scalar parameters.
func (m *Model) NumParams() int { return m.params.Count() }
