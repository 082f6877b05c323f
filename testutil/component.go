package testutil

import (
	"context"

	"github.com/kbukum/fuisce/component"
)

// TestComponent is a component.Component that tests can also reset,
// snapshot and restore. Session-scoped test infrastructure, such as the
// AppTestManager, implements it and is registered as a plugin.
type TestComponent interface {
	component.Component

	// Reset returns the component to the state it had right after Start.
	Reset(ctx context.Context) error

	// Snapshot captures the current state for a later Restore.
	Snapshot(ctx context.Context) (interface{}, error)

	// Restore returns the component to a state captured by Snapshot.
	Restore(ctx context.Context, snapshot interface{}) error
}
