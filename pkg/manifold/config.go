package manifold

import "fmt"

// Config sizes the manifold networks. Bands must equal the phase encoder's.
type Config struct {
	Latent int `json:"latent" yaml:"latent"`
	Hidden int `json:"hidden" yaml:"hidden"`
	Bands  int `json:"bands" yaml:"bands"`

	// MaxLogVar bounds |logvar| when sampling.
	MaxLogVar float64 `json:"max_logvar" yaml:"max_logvar"`
}

// DefaultConfig returns the default latent size for four phase bands.
func DefaultConfig() Config {
	return Config{Latent: 16, Hidden: 64, Bands: 4, MaxLogVar: 10}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Latent < 1:
		return fmt.Errorf("manifold: latent %d must be positive", c.Latent)
	case c.Hidden < 1:
		return fmt.Errorf("manifold: hidden %d must be positive", c.Hidden)
	case c.Bands < 1:
		return fmt.Errorf("manifold: bands %d must be positive", c.Bands)
	case !(c.MaxLogVar > 0):
		return fmt.Errorf("manifold: max logvar %v must be positive", c.MaxLogVar)
	}
	return nil
}
