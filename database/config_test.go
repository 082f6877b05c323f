package database

import (
	"strings"
	"testing"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.MaxOpenConns != 4 || cfg.MaxIdleConns != 2 {
		t.Errorf("pool = %d/%d, want 4/2", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.BusyTimeout != "5s" {
		t.Errorf("BusyTimeout = %q, want 5s", cfg.BusyTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.DisableForeignKeys {
		t.Error("foreign keys should be enabled by default")
	}
}

func TestConfig_ApplyDefaults_KeepsValues(t *testing.T) {
	cfg := Config{MaxOpenConns: 8, BusyTimeout: "1s", LogLevel: "info"}
	cfg.ApplyDefaults()

	if cfg.MaxOpenConns != 8 || cfg.BusyTimeout != "1s" || cfg.LogLevel != "info" {
		t.Errorf("ApplyDefaults overwrote explicit values: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := Config{Path: "app.sqlite"}
		c.ApplyDefaults()
		return c
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"memory", func(c *Config) { c.Path = MemoryPath }, ""},
		{"empty path allowed", func(c *Config) { c.Path = "" }, ""},
		{"dsn rejected", func(c *Config) { c.Path = "file:app.sqlite?mode=ro" }, "path"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 10 }, "max_idle_conns"},
		{"bad busy timeout", func(c *Config) { c.BusyTimeout = "forever" }, "busy_timeout"},
		{"bad slow threshold", func(c *Config) { c.SlowQueryThreshold = "x" }, "slow_query_threshold"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{BusyTimeout: "2s"}
	if got, want := cfg.DSN("data/app.sqlite"), "file:data/app.sqlite?_foreign_keys=on&_busy_timeout=2000"; got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}

	cfg.DisableForeignKeys = true
	if got := cfg.DSN(MemoryPath); got != "file::memory:?_foreign_keys=off&_busy_timeout=2000" {
		t.Errorf("DSN = %q", got)
	}

	if got := cfg.DSN("a%41/q?x#y.db"); !strings.HasPrefix(got, "file:a%2541/q%3fx%23y.db?_foreign_keys=off&") {
		t.Errorf("DSN should escape the path, got %q", got)
	}
	if got := (Config{}).DSN("x.db"); !strings.HasSuffix(got, "_busy_timeout=5000") {
		t.Errorf("expected default busy timeout, got %q", got)
	}
}
