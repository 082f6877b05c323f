// Package validation checks configuration and input structs.
//
// Struct tags are evaluated with go-playground/validator; field names in
// messages follow the struct's mapstructure or json tag:
//
//	type Config struct {
//	    Path string `mapstructure:"path" validate:"required,sqlitepath"`
//	}
//	err := validation.Validate(cfg)
//
// Checks that tags cannot express are collected with a Validator:
//
//	err := validation.New("database").
//	    Duration("busy_timeout", cfg.BusyTimeout).
//	    NonNegative("max_open_conns", cfg.MaxOpenConns).
//	    Validate()
package validation
