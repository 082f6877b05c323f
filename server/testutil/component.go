package testutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/fuisce/component"
	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/server"
	"github.com/kbukum/fuisce/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ComponentName is the name of the test server component.
const ComponentName = "server-test"

var errNotStarted = errors.New("test server not started")

// Component serves a server.Server through an httptest.Server.
type Component struct {
	mu    sync.RWMutex
	build func() *server.Server
	srv   *server.Server
	ts    *httptest.Server
}

var (
	_ component.Component    = (*Component)(nil)
	_ testutil.TestComponent = (*Component)(nil)
)

// NewComponent serves a fresh server with the standard middleware. Reset
// replaces it with another fresh server.
func NewComponent() *Component {
	return newComponent(func() *server.Server {
		cfg := server.Config{Host: "127.0.0.1"}
		cfg.ApplyDefaults()
		srv := server.New(cfg, logger.Nop())
		srv.ApplyMiddleware()
		return srv
	})
}

// Serve serves an existing server, such as an app's. Reset keeps it.
func Serve(srv *server.Server) *Component {
	return newComponent(func() *server.Server { return srv })
}

func newComponent(build func() *server.Server) *Component {
	return &Component{build: build, srv: build()}
}

// GinEngine returns the engine routes are registered on.
func (c *Component) GinEngine() *gin.Engine {
	return c.Server().GinEngine()
}

func (c *Component) Server() *server.Server {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.srv
}

// BaseURL is "http://127.0.0.1:<port>" while started, empty otherwise.
func (c *Component) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ts == nil {
		return ""
	}
	return c.ts.URL
}

// Client returns a client for the test server.
func (c *Component) Client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ts == nil {
		return http.DefaultClient
	}
	return c.ts.Client()
}

// Get requests path from the running test server.
func (c *Component) Get(ctx context.Context, path string) (*http.Response, error) {
	base := c.BaseURL()
	if base == "" {
		return nil, errNotStarted
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.Client().Do(req)
}

func (c *Component) Name() string { return ComponentName }

func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts != nil {
		return errors.New("test server already started")
	}
	c.ts = httptest.NewServer(c.srv.Handler())
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts != nil {
		c.ts.Close()
		c.ts = nil
	}
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ts == nil {
		return component.Health{Name: ComponentName, Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: ComponentName, Status: component.StatusHealthy}
}

// Reset restarts the test server on a rebuilt server.
func (c *Component) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts == nil {
		return errNotStarted
	}
	c.ts.Close()
	c.srv = c.build()
	c.ts = httptest.NewServer(c.srv.Handler())
	return nil
}

// Snapshot returns nil; a server holds no state worth keeping.
func (c *Component) Snapshot(context.Context) (interface{}, error) {
	return nil, nil
}

func (c *Component) Restore(context.Context, interface{}) error {
	return nil
}
