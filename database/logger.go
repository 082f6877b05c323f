package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/fuisce/logger"
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// parseLogLevel maps a log_level setting to gorm's levels; unknown values
// mean warn.
func parseLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(level)]; ok {
		return l
	}
	return gormlogger.Warn
}

// queryLogger routes gorm output to the fuisce logger. With echo set, every
// statement is logged at info level regardless of the configured level.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
	echo  bool
}

func newQueryLogger(log *logger.Logger, cfg Config, echo bool) *queryLogger {
	l := &queryLogger{
		log:   log.WithComponent("gorm"),
		level: parseLogLevel(cfg.LogLevel),
		slow:  cfg.slowThreshold(),
		echo:  echo,
	}
	if echo {
		l.level = gormlogger.Info
	}
	return l
}

func (l *queryLogger) enabled(level gormlogger.LogLevel) bool {
	return l.level >= level
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *queryLogger) Info(_ context.Context, format string, args ...interface{}) {
	if l.enabled(gormlogger.Info) {
		l.log.Info(fmt.Sprintf(format, args...))
	}
}

func (l *queryLogger) Warn(_ context.Context, format string, args ...interface{}) {
	if l.enabled(gormlogger.Warn) {
		l.log.Warn(fmt.Sprintf(format, args...))
	}
}

func (l *queryLogger) Error(_ context.Context, format string, args ...interface{}) {
	if l.enabled(gormlogger.Error) {
		l.log.Error(fmt.Sprintf(format, args...))
	}
}

// Trace logs a finished statement: failures at error, statements slower
// than the threshold at warn, and the rest at info when echoing or at debug
// when the level is info. A missing record is not a failure.
func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slow > 0 && elapsed > l.slow

	var emit func(string, ...map[string]interface{})
	msg := "Query"
	switch {
	case failed && l.enabled(gormlogger.Error):
		emit, msg = l.log.Error, "Query error"
	case slow && l.enabled(gormlogger.Warn):
		emit, msg = l.log.Warn, "Slow query"
	case l.echo:
		emit = l.log.Info
	case l.enabled(gormlogger.Info):
		emit = l.log.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := logger.DurationFields("query", elapsed)
	fields["sql"] = sql
	fields["rows"] = rows
	if failed {
		fields[logger.FieldError] = err.Error()
	}
	emit(msg, fields)
}
