package config

import (
	"fmt"
	"path/filepath"

	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/observability"
	"github.com/kbukum/fuisce/server"
	"github.com/kbukum/fuisce/validation"
)

// Environments accepted in Config.Environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// Config is the configuration of a fuisce application.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production testing"`
	// Testing marks a test application: it gets its own database interface
	// instead of the default one.
	Testing bool `yaml:"testing" mapstructure:"testing"`
	Debug   bool `yaml:"debug" mapstructure:"debug"`

	Database  DatabaseConfig       `yaml:"database" mapstructure:"database"`
	Logging   logger.Config        `yaml:"logging" mapstructure:"logging"`
	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// DatabaseConfig is the engine configuration plus what a test application
// needs to build its own interface.
type DatabaseConfig struct {
	database.Config `yaml:",inline" mapstructure:",squash"`

	// Preinitialized marks a database copied from an initialized template.
	Preinitialized bool `yaml:"preinitialized" mapstructure:"preinitialized"`

	// InterfaceOptions build the interface of a testing app.
	InterfaceOptions []database.Option `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults applies default values. A testing environment implies Testing.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Environment == EnvTesting {
		c.Testing = true
	}
	if c.Environment == EnvDevelopment {
		c.Debug = true
	}
	if c.Database.Path == "" && c.Name != "" {
		c.Database.Path = filepath.Join("instance", c.Name+".sqlite")
	}
	c.Database.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
}

// Validate checks struct tags, then every section.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("config.database: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	return nil
}

// Clone returns a copy that can be changed without affecting c.
func (c *Config) Clone() *Config {
	out := *c
	out.Database.InterfaceOptions = append([]database.Option(nil), c.Database.InterfaceOptions...)
	return &out
}
