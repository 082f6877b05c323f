package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/fuisce/validation"
)

// MemoryPath selects a private in-memory SQLite database.
const MemoryPath = validation.MemoryPath

// Config holds the SQLite engine configuration.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string `yaml:"path" mapstructure:"path" validate:"omitempty,sqlitepath"`

	// Echo logs every statement at info level.
	Echo bool `yaml:"echo" mapstructure:"echo"`

	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=silent error warn info"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`

	MaxOpenConns int `yaml:"max_open_conns" mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int `yaml:"max_idle_conns" mapstructure:"max_idle_conns" validate:"gte=0"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h").
	// Ignored for in-memory databases, whose data lives only as long as the connection.
	ConnMaxLifetime string `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// BusyTimeout is how long a connection waits on a locked database (e.g. "5s").
	BusyTimeout string `yaml:"busy_timeout" mapstructure:"busy_timeout"`

	// MaxRetries is the number of open attempts before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// DisableForeignKeys turns off foreign-key enforcement, which is on by default.
	DisableForeignKeys bool `yaml:"disable_foreign_keys" mapstructure:"disable_foreign_keys"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.BusyTimeout == "" {
		c.BusyTimeout = "5s"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
}

// Validate checks struct tags, durations and the pool limits.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return validation.New("database").
		Duration("slow_query_threshold", c.SlowQueryThreshold).
		Duration("conn_max_lifetime", c.ConnMaxLifetime).
		Duration("busy_timeout", c.BusyTimeout).
		Custom(c.MaxOpenConns == 0 || c.MaxIdleConns <= c.MaxOpenConns, "max_idle_conns",
			fmt.Sprintf("must be <= max_open_conns (%d > %d)", c.MaxIdleConns, c.MaxOpenConns)).
		Validate()
}

// uriPath escapes the characters SQLite decodes or splits on in a file URI.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// DSN builds the go-sqlite3 connection string for path:
//
//	file:<path>?_foreign_keys=on&_busy_timeout=<ms>
//
// "%", "?" and "#" in path are percent-encoded, so they name the file
// instead of starting the query or fragment.
func (c Config) DSN(path string) string {
	fk := "on"
	if c.DisableForeignKeys {
		fk = "off"
	}
	busy := 5 * time.Second
	if d, err := time.ParseDuration(c.BusyTimeout); err == nil {
		busy = d
	}

	return fmt.Sprintf("file:%s?_foreign_keys=%s&_busy_timeout=%d", uriPath.Replace(path), fk, busy.Milliseconds())
}

func (c Config) slowThreshold() time.Duration {
	d, err := time.ParseDuration(c.SlowQueryThreshold)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}
