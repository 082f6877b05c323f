package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger that takes its fields as maps.
type Logger struct {
	zl zerolog.Logger
}

// New builds the logger of the named app from cfg.
func New(cfg *Config, app string) *Logger {
	return NewWithWriter(cfg, app, cfg.writer())
}

// NewWithWriter is New writing to w instead of the configured output.
func NewWithWriter(cfg *Config, app string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, FormatConsole) {
		zl = zerolog.New(consoleWriter(w, app, cfg.NoColor))
	} else {
		zl = zerolog.New(w).With().Str(FieldApp, app).Logger()
	}

	zc := zl.Level(level).With()
	if !cfg.NoTimestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger()}
}

// NewDefault logs info and above to stdout in console format.
func NewDefault(app string) *Logger {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return New(cfg, app)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithComponent tags every entry with the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, name).Logger()}
}

// WithFields adds fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	write(l.zl.Error(), msg, fields)
}

func write(e *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

var (
	globalMu sync.RWMutex
	global   *Logger
)

// SetGlobalLogger replaces the logger used by the package-level functions.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the global logger, creating a default one first.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := global
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = NewDefault("fuisce")
	}
	return global
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

// WithComponent returns the global logger tagged with a component name.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

var (
	levelTags   = map[string]string{"trace": "TRC", "debug": "DBG", "info": "INF", "warn": "WRN", "error": "ERR", "fatal": "FTL"}
	levelColors = map[string]int{"DBG": 36, "INF": 32, "WRN": 33, "ERR": 31, "FTL": 35}
)

// consoleWriter prints "15:04:05 [INF] [app] message key:value".
func consoleWriter(w io.Writer, app string, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl, ok := levelTags[fmt.Sprint(i)]
			if !ok {
				lvl = strings.ToUpper(fmt.Sprint(i))
			}
			if color, ok := levelColors[lvl]; ok && !noColor {
				return fmt.Sprintf("\033[%dm[%s]\033[0m", color, lvl)
			}
			return "[" + lvl + "]"
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			if app == "" {
				return fmt.Sprint(i)
			}
			return fmt.Sprintf("[%s] %v", app, i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	}
}
