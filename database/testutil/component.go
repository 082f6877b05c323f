package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/kbukum/fuisce/component"
	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/testutil"
)

// ComponentName is the name of the test database component.
const ComponentName = "database-test"

var errNotStarted = errors.New("test database not started")

// Snapshot holds the rows of every table, keyed by table name.
type Snapshot map[string][]Row

// Component runs an initialized in-memory SQLite interface.
type Component struct {
	mu       sync.RWMutex
	iface    *database.Interface
	metadata *database.Metadata
	opts     []database.Option
}

var (
	_ component.Component    = (*Component)(nil)
	_ testutil.TestComponent = (*Component)(nil)
)

// NewComponent returns a test database whose models and views are kept
// apart from DefaultMetadata.
func NewComponent(opts ...database.Option) *Component {
	return &Component{metadata: database.NewMetadata(), opts: opts}
}

// WithModels registers models whose tables are created on Start.
func (c *Component) WithModels(models ...interface{}) *Component {
	c.metadata.Register(models...)
	return c
}

// WithViews registers views created on Start.
func (c *Component) WithViews(views ...database.View) *Component {
	c.metadata.RegisterView(views...)
	return c
}

// Interface is nil until Start.
func (c *Component) Interface() *database.Interface {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iface
}

// DB is the interface's engine, nil until Start.
func (c *Component) DB() *gorm.DB {
	if iface := c.Interface(); iface != nil {
		return iface.Engine()
	}
	return nil
}

func (c *Component) Name() string { return ComponentName }

// Start opens the database and creates the schema.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.iface != nil {
		return errors.New("test database already started")
	}

	opts := append([]database.Option{
		database.WithMetadata(c.metadata),
		database.WithLogger(logger.Nop()),
	}, c.opts...)
	iface := database.New(opts...)
	if err := iface.SetupEngine(ctx, database.MemoryPath); err != nil {
		return fmt.Errorf("open test database: %w", err)
	}
	if err := iface.Initialize(ctx, nil); err != nil {
		_ = iface.Close()
		return fmt.Errorf("initialize test database: %w", err)
	}
	c.iface = iface
	return nil
}

// Stop closes the database, discarding its data.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.iface == nil {
		return nil
	}
	err := c.iface.Close()
	c.iface = nil
	return err
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: ComponentName, Status: component.StatusHealthy}
	iface := c.Interface()
	switch {
	case iface == nil:
		h.Status, h.Message = component.StatusUnhealthy, "database not started"
	case iface.PingContext(ctx) != nil:
		h.Status, h.Message = component.StatusUnhealthy, "ping failed"
	}
	return h
}

// Reset empties every table, keeping the schema.
func (c *Component) Reset(ctx context.Context) error {
	db, err := c.engine(ctx)
	if err != nil {
		return err
	}
	return TruncateAllTables(db)
}

// Snapshot captures every table as a Snapshot.
func (c *Component) Snapshot(ctx context.Context) (interface{}, error) {
	db, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := GetTableNames(db)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	snap := make(Snapshot, len(tables))
	for _, table := range tables {
		var rows []Row
		if err := db.Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", table, err)
		}
		snap[table] = rows
	}
	return snap, nil
}

// Restore replaces the contents of every table with a Snapshot.
func (c *Component) Restore(ctx context.Context, snapshot interface{}) error {
	snap, ok := snapshot.(Snapshot)
	if !ok {
		return fmt.Errorf("restore: want a %T, got %T", Snapshot{}, snapshot)
	}
	db, err := c.engine(ctx)
	if err != nil {
		return err
	}
	return deferForeignKeys(db, func(tx *gorm.DB) error {
		if err := truncateAll(tx); err != nil {
			return err
		}
		for table, rows := range snap {
			if err := LoadFixture(tx, table, rows); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Component) engine(ctx context.Context) (*gorm.DB, error) {
	db := c.DB()
	if db == nil {
		return nil, errNotStarted
	}
	return db.WithContext(ctx), nil
}
