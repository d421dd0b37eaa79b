package phase

import "fmt"

// Config sizes the phase network.
type Config struct {
	WindowLength int     `json:"window_length" yaml:"window_length"`
	Bands        int     `json:"bands" yaml:"bands"`
	Hidden       int     `json:"hidden" yaml:"hidden"`
	Kernel       int     `json:"kernel" yaml:"kernel"`
	Epsilon      float64 `json:"epsilon" yaml:"epsilon"`
}

// DefaultConfig returns a one-second window at 30 fps with four bands.
func DefaultConfig() Config {
	return Config{
		WindowLength: 31,
		Bands:        4,
		Hidden:       32,
		Kernel:       5,
		Epsilon:      1e-6,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.WindowLength < 2:
		return fmt.Errorf("phase: window length %d must be at least 2", c.WindowLength)
	case c.Bands < 1:
		return fmt.Errorf("phase: bands %d must be positive", c.Bands)
	case c.Hidden < 1:
		return fmt.Errorf("phase: hidden %d must be positive", c.Hidden)
	case c.Kernel < 1:
		return fmt.Errorf("phase: kernel %d must be positive", c.Kernel)
	case !(c.Epsilon > 0):
		return fmt.Errorf("phase: epsilon %v must be positive", c.Epsilon)
	}
	return nil
}
