package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/fuisce/errors"
)

func TestValidatorChecks(t *testing.T) {
	tests := []struct {
		name    string
		v       *Validator
		wantErr bool
	}{
		{"in range", New("").Range("port", 5000, 0, 65535), false},
		{"out of range", New("").Range("port", 70000, 0, 65535), true},
		{"non-negative", New("").NonNegative("idle_timeout", 0), false},
		{"negative", New("").NonNegative("idle_timeout", -1), true},
		{"duration", New("").Duration("busy_timeout", "250ms"), false},
		{"empty duration", New("").Duration("busy_timeout", ""), false},
		{"bad duration", New("").Duration("busy_timeout", "soon"), true},
		{"one of", New("").OneOf("format", "JSON", []string{"json", "console"}), false},
		{"empty one of", New("").OneOf("format", "", []string{"json"}), false},
		{"not one of", New("").OneOf("format", "xml", []string{"json", "console"}), true},
		{"custom ok", New("").Custom(true, "path", "never"), false},
		{"custom fail", New("").Custom(false, "path", "is a directory"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(tc.v.Errors()) > 0; got != tc.wantErr {
				t.Errorf("errors = %v, want error %v", tc.v.Errors(), tc.wantErr)
			}
		})
	}
}

func TestValidatorSection(t *testing.T) {
	err := New("server").Range("port", -1, 0, 65535).Duration("read_timeout", "x").Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	for _, want := range []string{"server.port:", "server.read_timeout:"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("message %q should mention %s", appErr.Message, want)
		}
	}
	if fields, ok := appErr.Details["fields"].([]FieldError); !ok || len(fields) != 2 {
		t.Errorf("expected two fields in details, got %v", appErr.Details["fields"])
	}
	if New("server").Range("port", 80, 0, 65535).Validate() != nil {
		t.Error("passing checks should validate")
	}
}

type dbSection struct {
	Path         string `mapstructure:"path" validate:"required,sqlitepath"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

type appConfig struct {
	Name        string    `mapstructure:"name" validate:"required"`
	Environment string    `json:"environment" validate:"omitempty,oneof=development testing production"`
	Database    dbSection `mapstructure:"database"`
}

func TestStructValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       appConfig
		wantField string
	}{
		{"valid", appConfig{Name: "app", Database: dbSection{Path: "app.sqlite"}}, ""},
		{"memory path", appConfig{Name: "app", Database: dbSection{Path: MemoryPath}}, ""},
		{"missing name", appConfig{Database: dbSection{Path: "app.sqlite"}}, "name"},
		{"bad environment", appConfig{Name: "app", Environment: "staging", Database: dbSection{Path: "x.db"}}, "environment"},
		{"missing path", appConfig{Name: "app"}, "database.path"},
		{"dsn as path", appConfig{Name: "app", Database: dbSection{Path: "file:x.db?mode=ro"}}, "database.path"},
		{"negative conns", appConfig{Name: "app", Database: dbSection{Path: "x.db", MaxOpenConns: -1}}, "database.max_open_conns"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.cfg)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantField+":") {
				t.Errorf("expected error to mention %q, got %q", tc.wantField, err.Error())
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxOpenConns"); got != "max_open_conns" {
		t.Errorf("toSnakeCase = %q", got)
	}
}
