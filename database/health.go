package database

import (
	"context"
	"time"
)

// HealthStatus is the result of CheckHealth.
type HealthStatus struct {
	Connected  bool          `json:"connected"`
	Path       string        `json:"path"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	OpenConns  int           `json:"open_connections"`
	InUseConns int           `json:"in_use_connections"`
	IdleConns  int           `json:"idle_connections"`
}

// Ping verifies the engine is usable.
func (i *Interface) Ping() error {
	return i.PingContext(context.Background())
}

// PingContext verifies the engine is usable, respecting the context.
func (i *Interface) PingContext(ctx context.Context) error {
	engine := i.Engine()
	if engine == nil {
		return ErrNotSetUp
	}
	sqlDB, err := engine.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsHealthy returns true if the engine is set up and answers pings.
func (i *Interface) IsHealthy(ctx context.Context) bool {
	return i.CheckHealth(ctx).Connected
}

// CheckHealth pings the engine and reports pool statistics.
func (i *Interface) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()
	status := HealthStatus{Path: i.Path()}

	engine := i.Engine()
	if engine == nil {
		status.Error = ErrNotSetUp.Error()
		return status
	}
	sqlDB, err := engine.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	stats := sqlDB.Stats()
	status.Connected = true
	status.OpenConns = stats.OpenConnections
	status.InUseConns = stats.InUse
	status.IdleConns = stats.Idle
	return status
}
