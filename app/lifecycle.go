package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/observability"
)

// Hook is a lifecycle callback run when the app starts or stops.
type Hook func(ctx context.Context) error

// OnStart registers hooks that run after the components are started.
func (a *App) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnStop registers hooks that run before the components are stopped.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}

// Start installs telemetry, starts every registered component (the HTTP
// server first) and runs the OnStart hooks.
func (a *App) Start(ctx context.Context) error {
	if a.telemetryShutdown == nil {
		shutdown, err := observability.Init(ctx, a.Cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		a.telemetryShutdown = shutdown
	}

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.ErrorFields("ready", err))
	}

	a.Logger.Info("Application started", map[string]interface{}{
		"app":  a.Name,
		"addr": a.server.Addr(),
	})
	return nil
}

// Stop runs the OnStop hooks, then stops the components in reverse order and
// flushes telemetry. The database stays open; see Close.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("stop", err))
		errs = append(errs, err)
	}
	a.mu.Lock()
	a.started = false
	a.mu.Unlock()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop", err))
		errs = append(errs, err)
	}
	if a.telemetryShutdown != nil {
		if err := a.telemetryShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
		a.telemetryShutdown = nil
	}
	return errors.Join(errs...)
}

// Run starts the app, blocks until a signal or ctx cancellation, then shuts
// down within the graceful timeout and closes the database.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return err
	}
	a.WaitForSignal(ctx)
	return a.Close()
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Close stops the app within the graceful timeout and closes its database.
// Closing a non-testing app disposes the engine of the default interface until
// the next app sets it up again. Safe to call multiple times.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	err := a.Stop(ctx)
	if db := a.DB(); db != nil {
		if cerr := db.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", cerr))
		}
	}
	a.Logger.Debug("Application closed", map[string]interface{}{"app": a.Name})
	return err
}
