package app

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/fuisce/component"
	"github.com/kbukum/fuisce/config"
	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/server"
	"github.com/kbukum/fuisce/server/endpoint"
)

// Factory builds an application from a configuration. Test managers and the
// CLI call it to obtain apps; it typically calls New, then selects the
// database with SelectDatabase and registers routes.
type Factory func(ctx context.Context, cfg *config.Config) (*App, error)

// App is a fuisce application: configuration, logger, HTTP server and the
// database interface selected for it.
type App struct {
	Name       string
	Cfg        *config.Config
	Components *component.Registry
	Logger     *logger.Logger

	server          *server.Server
	gracefulTimeout time.Duration

	mu        sync.RWMutex
	db        *database.Interface
	teardowns []func(ctx context.Context, err error)

	onStart []Hook
	onStop  []Hook

	telemetryShutdown func(context.Context) error
	started           bool
	closed            bool
}

var _ database.Host = (*App)(nil)

// New creates an application from cfg. It applies defaults, validates the
// config and builds the logger, the server and the app-context middleware.
// cfg is cloned; later changes to it do not affect the app.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config validation: nil config")
	}
	cfg = cfg.Clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	log := o.logger
	if log == nil {
		log = logger.New(&cfg.Logging, cfg.Name)
	}

	a := &App{
		Name:            cfg.Name,
		Cfg:             cfg,
		Components:      component.NewRegistry(log.WithComponent("registry")),
		Logger:          log,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}

	a.server = server.New(cfg.Server, log)
	a.server.ApplyMiddleware()
	engine := a.server.GinEngine()
	engine.Use(a.appContextMiddleware())
	engine.GET("/health", endpoint.Health(cfg.Name, a.Health))
	engine.GET("/version", endpoint.Version())

	if err := a.Components.Register(server.NewComponent(a.server)); err != nil {
		return nil, err
	}

	log.Debug("Application created", map[string]interface{}{
		"environment": cfg.Environment,
		"testing":     cfg.Testing,
		"database":    cfg.Database.Path,
	})
	return a, nil
}

// SelectDatabase attaches a database interface to the app through
// database.InterfaceSelector and runs init once the engine is set up.
func (a *App) SelectDatabase(ctx context.Context, init func(ctx context.Context, host database.Host) error) error {
	return database.InterfaceSelector(init)(ctx, a)
}

// Testing reports whether the app is a test application.
func (a *App) Testing() bool { return a.Cfg.Testing }

// DatabasePath returns the SQLite file of the app.
func (a *App) DatabasePath() string { return a.Cfg.Database.Path }

// InterfaceOptions returns the options of the interface built for a testing
// app. The database section of the config comes first so options can override it.
func (a *App) InterfaceOptions() []database.Option {
	opts := []database.Option{
		database.WithConfig(a.Cfg.Database.Config),
		database.WithLogger(a.Logger),
	}
	return append(opts, a.Cfg.Database.InterfaceOptions...)
}

// DatabasePreinitialized reports whether the database was copied from an
// initialized template.
func (a *App) DatabasePreinitialized() bool { return a.Cfg.Database.Preinitialized }

// SetDB sets the database interface of the app.
func (a *App) SetDB(db *database.Interface) {
	a.mu.Lock()
	a.db = db
	a.mu.Unlock()
}

// DB returns the database interface of the app, or nil.
func (a *App) DB() *database.Interface {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.db
}

// TeardownAppContext registers fn to run when an app context ends, after
// every request and every AppContext release.
func (a *App) TeardownAppContext(fn func(ctx context.Context, err error)) {
	a.mu.Lock()
	a.teardowns = append(a.teardowns, fn)
	a.mu.Unlock()
}

// Engine returns the Gin engine for route registration.
func (a *App) Engine() *gin.Engine { return a.server.GinEngine() }

// Server returns the HTTP server of the app.
func (a *App) Server() *server.Server { return a.server }

// Handler returns the complete HTTP handler, for in-process serving.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// RegisterComponent adds a component to the application's registry.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// Health reports the registered components plus the database. Until Start,
// the app is served in-process and the HTTP server is left out.
func (a *App) Health(ctx context.Context) []component.Health {
	results := a.componentHealth(ctx)
	if db := a.DB(); db != nil {
		results = append(results, database.NewComponent(db, db.Path()).Health(ctx))
	}
	return results
}

func (a *App) componentHealth(ctx context.Context) []component.Health {
	results := a.Components.HealthAll(ctx)
	a.mu.RLock()
	started := a.started
	a.mu.RUnlock()
	if started {
		return results
	}
	return slices.DeleteFunc(results, func(h component.Health) bool {
		return h.Name == server.ComponentName
	})
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	return component.Check(a.componentHealth(ctx))
}
