package database

import (
	"context"
	"fmt"

	"github.com/kbukum/fuisce/component"
)

// Component adapts an Interface to the component lifecycle: Start sets up
// the engine on path and Stop closes it.
type Component struct {
	iface      *Interface
	path       string
	initialize bool
}

// NewComponent creates a database component for use with the component registry.
func NewComponent(iface *Interface, path string) *Component {
	return &Component{iface: iface, path: path}
}

// WithInitialize makes Start also run Initialize without a host.
func (c *Component) WithInitialize() *Component {
	c.initialize = true
	return c
}

// Interface returns the wrapped interface.
func (c *Component) Interface() *Interface {
	return c.iface
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start sets up the engine and optionally initializes the database.
func (c *Component) Start(ctx context.Context) error {
	if err := c.iface.SetupEngine(ctx, c.path); err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	if c.initialize {
		if err := c.iface.Initialize(ctx, nil); err != nil {
			return fmt.Errorf("database initialize: %w", err)
		}
	}
	return nil
}

// Stop closes the engine.
func (c *Component) Stop(_ context.Context) error {
	return c.iface.Close()
}

// Health returns the current health status of the database.
func (c *Component) Health(ctx context.Context) component.Health {
	h := c.iface.CheckHealth(ctx)
	if !h.Connected {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: h.Error,
		}
	}
	return component.Health{
		Name:   c.Name(),
		Status: component.StatusHealthy,
	}
}

// Describe returns summary info for startup logging.
func (c *Component) Describe() component.Description {
	fk := "on"
	if c.iface.Config().DisableForeignKeys {
		fk = "off"
	}
	return component.Description{
		Name:    "SQLite",
		Type:    "database",
		Details: fmt.Sprintf("path=%s fk=%s echo=%t", c.path, fk, c.iface.Echo()),
	}
}
