package server

import (
	"context"
	"fmt"

	"github.com/kbukum/fuisce/component"
)

// ComponentName is the registry name of the HTTP server.
const ComponentName = "http-server"

// Component runs a Server as part of an application's lifecycle.
type Component struct {
	server *Server
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent returns a component.Component backed by the given Server.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Name returns ComponentName.
func (c *Component) Name() string { return ComponentName }

// Start begins listening; it returns once the listener is bound.
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }

// Stop shuts the server down gracefully within ctx.
func (c *Component) Stop(ctx context.Context) error { return c.server.Stop(ctx) }

// Health is healthy while the server is listening.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: ComponentName, Status: component.StatusHealthy}
	if !c.server.Running() {
		h.Status = component.StatusUnhealthy
		h.Message = "not listening"
	}
	return h
}

// Describe reports the listen address and the number of routes.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("addr=%s routes=%d", c.server.Addr(), len(c.server.engine.Routes())),
	}
}
