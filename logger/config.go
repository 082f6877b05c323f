package logger

import (
	"io"
	"os"
	"strings"

	"github.com/kbukum/fuisce/validation"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	levels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	formats = []string{FormatJSON, FormatConsole}
	outputs = []string{"stdout", "stderr", "discard"}
)

// Config is the logging section of the app configuration.
type Config struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	// Output is stdout, stderr or discard.
	Output  string `yaml:"output" mapstructure:"output"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
	// NoTimestamp leaves the time out of every entry.
	NoTimestamp bool `yaml:"no_timestamp" mapstructure:"no_timestamp"`
	Caller      bool `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults logs info and above to stdout in console format.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// Validate rejects unknown levels, formats and outputs.
func (c *Config) Validate() error {
	return validation.New("logging").
		Custom(c.Level != "", "level", "is required").
		OneOf("level", c.Level, levels).
		OneOf("format", c.Format, formats).
		OneOf("output", c.Output, outputs).
		Validate()
}

func (c *Config) writer() io.Writer {
	switch strings.ToLower(c.Output) {
	case "stderr":
		return os.Stderr
	case "discard":
		return io.Discard
	default:
		return os.Stdout
	}
}
