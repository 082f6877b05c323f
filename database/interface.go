package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	apperrors "github.com/kbukum/fuisce/errors"
	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/resilience"
)

// Interface connects an application to its local SQLite database. It owns the
// gorm engine, hands out context-scoped sessions and materializes the
// registered metadata.
type Interface struct {
	mu           sync.RWMutex
	engine       *gorm.DB
	path         string
	echo         bool
	cfg          Config
	metadata     *Metadata
	initializers []Initializer
	log          *logger.Logger
}

// Option configures an Interface.
type Option func(*Interface)

// WithEcho sets the default statement echo used by SetupEngine.
func WithEcho(echo bool) Option {
	return func(i *Interface) { i.echo = echo }
}

// WithMetadata replaces DefaultMetadata for this interface.
func WithMetadata(m *Metadata) Option {
	return func(i *Interface) {
		if m != nil {
			i.metadata = m
		}
	}
}

// WithInitializer appends custom initialization steps run by Initialize
// after the tables are created.
func WithInitializer(fns ...Initializer) Option {
	return func(i *Interface) { i.initializers = append(i.initializers, fns...) }
}

// WithLogger sets the logger; the interface tags it with component "database".
func WithLogger(l *logger.Logger) Option {
	return func(i *Interface) {
		if l != nil {
			i.log = l.WithComponent("database")
		}
	}
}

// WithConfig sets the engine configuration. cfg.Echo becomes the default echo.
func WithConfig(cfg Config) Option {
	return func(i *Interface) {
		i.cfg = cfg
		i.echo = cfg.Echo
	}
}

// New creates an interface. The engine is not opened until SetupEngine.
func New(opts ...Option) *Interface {
	i := &Interface{
		metadata: DefaultMetadata,
		log:      logger.WithComponent("database"),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.cfg.ApplyDefaults()
	return i
}

// SetupEngine opens the engine for the database at path. An explicit echo
// overrides the interface default. Calling it again replaces and closes the
// previous engine.
func (i *Interface) SetupEngine(ctx context.Context, path string, echo ...bool) error {
	if path == "" {
		return apperrors.MissingField("database path")
	}
	useEcho := i.echo
	if len(echo) > 0 {
		useEcho = echo[0]
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return apperrors.Internal(err).WithDetail("path", path)
		}
	}

	gormCfg := &gorm.Config{
		Logger:         newQueryLogger(i.log, i.cfg, useEcho),
		TranslateError: true,
	}
	db, err := open(ctx, i.cfg.DSN(path), gormCfg, i.cfg, i.log)
	if err != nil {
		return err
	}
	if err := configurePool(db, i.cfg, path); err != nil {
		closeEngine(db)
		return err
	}

	i.mu.Lock()
	old := i.engine
	i.engine = db
	i.path = path
	i.mu.Unlock()

	if old != nil {
		closeEngine(old)
	}

	i.log.Info("Database engine ready", map[string]interface{}{
		"path": path,
		"echo": useEcho,
	})
	return nil
}

// open opens the engine, retrying while the file cannot be opened.
func open(ctx context.Context, dsn string, gormCfg *gorm.Config, cfg Config, log *logger.Logger) (*gorm.DB, error) {
	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.MaxRetries,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Database open failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
				"backoff": wait.String(),
			})
		},
	}
	db, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			closeEngine(db)
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("database open canceled: %w", ctx.Err())
		}
		return nil, apperrors.DatabaseError(
			fmt.Errorf("failed to open database after %d attempts: %w", cfg.MaxRetries, err))
	}
	return db, nil
}

// configurePool applies pool limits. An in-memory database exists only on
// its connection, so its pool is pinned to one connection that never expires.
func configurePool(db *gorm.DB, cfg Config, path string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if path == MemoryPath {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return nil
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	return nil
}

func closeEngine(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Engine returns the gorm engine, or nil before SetupEngine.
func (i *Interface) Engine() *gorm.DB {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.engine
}

// Path returns the path given to the last SetupEngine.
func (i *Interface) Path() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.path
}

// Echo reports the default statement echo.
func (i *Interface) Echo() bool { return i.echo }

// Config returns the engine configuration.
func (i *Interface) Config() Config { return i.cfg }

// Metadata returns the metadata materialized by CreateTables.
func (i *Interface) Metadata() *Metadata { return i.metadata }

// Logger returns the interface logger.
func (i *Interface) Logger() *logger.Logger { return i.log }

// Tables maps table names to the registered models.
func (i *Interface) Tables() map[string]interface{} {
	var namer schema.Namer
	if engine := i.Engine(); engine != nil {
		namer = engine.NamingStrategy
	}
	tables, err := i.metadata.Tables(namer)
	if err != nil {
		i.log.Warn("Failed to resolve table metadata", logger.ErrorFields("tables", err))
	}
	return tables
}

// Views returns the registered views.
func (i *Interface) Views() []View {
	return i.metadata.Views()
}

// Close disposes the engine. Safe to call multiple times.
func (i *Interface) Close() error {
	i.mu.Lock()
	engine := i.engine
	i.engine = nil
	i.mu.Unlock()

	if engine == nil {
		return nil
	}
	sqlDB, err := engine.DB()
	if err != nil {
		return err
	}
	i.log.Debug("Closing database engine", map[string]interface{}{"path": i.Path()})
	return sqlDB.Close()
}
