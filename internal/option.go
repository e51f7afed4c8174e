package internal

// Option configures the Ditakeeper application before Run or RunMCP starts.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig supplies the loaded configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
