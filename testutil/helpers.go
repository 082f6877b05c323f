package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/fuisce/app"
)

// CleanupFunc stops what a Setup call started.
type CleanupFunc func() error

// Setup starts a test component and returns a cleanup function that stops it.
//
//	cleanup, err := testutil.Setup(ctx, dbComponent)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer cleanup()
func Setup(ctx context.Context, c TestComponent) (CleanupFunc, error) {
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return func() error { return c.Stop(ctx) }, nil
}

// THelper binds test components and apps to a test, failing it on errors and
// releasing them with t.Cleanup.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps a test:
//
//	func TestCreatePost(t *testing.T) {
//	    a := testutil.T(t).App(manager)
//	    ...
//	}
func T(t testing.TB) *THelper {
	return &THelper{t: t, ctx: context.Background()}
}

// WithContext sets the context passed to components and apps.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts a component and stops it when the test ends.
func (h *THelper) Setup(c TestComponent) {
	h.t.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	h.t.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Reset resets a component.
func (h *THelper) Reset(c TestComponent) {
	h.t.Helper()
	if err := c.Reset(h.ctx); err != nil {
		h.t.Fatalf("failed to reset component %s: %v", c.Name(), err)
	}
}

// Snapshot captures the state of a component.
func (h *THelper) Snapshot(c TestComponent) interface{} {
	h.t.Helper()
	snapshot, err := c.Snapshot(h.ctx)
	if err != nil {
		h.t.Fatalf("failed to snapshot component %s: %v", c.Name(), err)
	}
	return snapshot
}

// Restore returns a component to a captured state.
func (h *THelper) Restore(c TestComponent, snapshot interface{}) {
	h.t.Helper()
	if err := c.Restore(h.ctx, snapshot); err != nil {
		h.t.Fatalf("failed to restore component %s: %v", c.Name(), err)
	}
}

// App returns an ephemeral app of m, closed when the test ends. Use it for
// tests that modify the database.
func (h *THelper) App(m *AppTestManager) *app.App {
	h.t.Helper()
	a, err := m.NewApp(h.ctx)
	if err != nil {
		h.t.Fatalf("failed to create app: %v", err)
	}
	h.t.Cleanup(func() {
		if err := m.CloseApp(a); err != nil {
			h.t.Errorf("failed to close app: %v", err)
		}
	})
	return a
}

// PersistentApp returns the session's persistent app of m.
func (h *THelper) PersistentApp(m *AppTestManager) *app.App {
	h.t.Helper()
	a := m.PersistentApp()
	if a == nil {
		h.t.Fatalf("app test manager %s is not started", m.Name())
	}
	return a
}
