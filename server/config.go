package server

import "github.com/kbukum/fuisce/validation"

// Config holds HTTP server configuration.
type Config struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	// LogRequests enables the request logging middleware.
	LogRequests bool `yaml:"log_requests" mapstructure:"log_requests"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
}

// Validate checks the port and the timeouts.
func (c *Config) Validate() error {
	return validation.New("server").
		Range("port", c.Port, 0, 65535).
		NonNegative("read_timeout", c.ReadTimeout).
		NonNegative("write_timeout", c.WriteTimeout).
		NonNegative("idle_timeout", c.IdleTimeout).
		Validate()
}
