package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Manager runs a set of test components as one: they start in the order they
// were added and stop in reverse order.
type Manager struct {
	mu         sync.RWMutex
	components []TestComponent
	started    []TestComponent
}

// NewManager creates a manager for the given components.
func NewManager(components ...TestComponent) *Manager {
	m := &Manager{}
	for _, c := range components {
		_ = m.Add(c)
	}
	return m
}

// Add registers a component. Names must be unique.
func (m *Manager) Add(c TestComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.components {
		if existing.Name() == c.Name() {
			return fmt.Errorf("test component %s already added", c.Name())
		}
	}
	m.components = append(m.components, c)
	return nil
}

// Components returns the registered components in start order.
func (m *Manager) Components() []TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TestComponent(nil), m.components...)
}

// Get returns the component named name, or nil.
func (m *Manager) Get(name string) TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// StartAll starts every component. When one fails, the components already
// started are stopped again and the start error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.components {
		if err := c.Start(ctx); err != nil {
			startErr := fmt.Errorf("failed to start test component %s: %w", c.Name(), err)
			return errors.Join(startErr, m.stopStarted(ctx))
		}
		m.started = append(m.started, c)
	}
	return nil
}

// StopAll stops the started components in reverse order. Every component is
// stopped even if some fail; the failures are joined.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopStarted(ctx)
}

func (m *Manager) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop test component %s: %w", c.Name(), err))
		}
	}
	m.started = nil
	return errors.Join(errs...)
}

// ResetAll resets every component, stopping at the first failure.
func (m *Manager) ResetAll(ctx context.Context) error {
	for _, c := range m.Components() {
		if err := c.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset test component %s: %w", c.Name(), err)
		}
	}
	return nil
}

// SnapshotAll snapshots every component, keyed by name.
func (m *Manager) SnapshotAll(ctx context.Context) (map[string]interface{}, error) {
	snapshots := make(map[string]interface{})
	for _, c := range m.Components() {
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot test component %s: %w", c.Name(), err)
		}
		snapshots[c.Name()] = snap
	}
	return snapshots, nil
}

// RestoreAll restores the components present in snapshots.
func (m *Manager) RestoreAll(ctx context.Context, snapshots map[string]interface{}) error {
	for _, c := range m.Components() {
		snap, ok := snapshots[c.Name()]
		if !ok {
			continue
		}
		if err := c.Restore(ctx, snap); err != nil {
			return fmt.Errorf("failed to restore test component %s: %w", c.Name(), err)
		}
	}
	return nil
}
