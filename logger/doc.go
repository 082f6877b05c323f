// Package logger provides structured logging for fuisce using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg.Logging, "blog").WithComponent("database")
//	log.Info("engine ready", logger.Fields("path", path))
package logger
