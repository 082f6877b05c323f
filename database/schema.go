package database

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/observability"
)

// Initializer is an app-specific initialization step run by Initialize after
// the tables exist: prepopulation, migrations, seed data. host is the
// application being initialized and may be nil when the database is
// initialized outside an application.
type Initializer func(ctx context.Context, db *Interface, host Host) error

// Initialize creates the tables and views, then runs every custom
// initializer in registration order.
func (i *Interface) Initialize(ctx context.Context, host Host) (err error) {
	ctx, span := observability.StartSpan(ctx, "database.Initialize")
	span.SetAttributes(
		attribute.String(observability.AttrDBPath, i.Path()),
		attribute.Int(observability.AttrInitializer, len(i.initializers)),
	)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		dbMetrics().RecordInitialize(ctx, status)
		observability.EndSpan(span, err)
	}()

	start := time.Now()
	if err := i.CreateTables(ctx); err != nil {
		return err
	}
	for n, fn := range i.initializers {
		if err := fn(ctx, i, host); err != nil {
			i.log.Error("Database initializer failed", logger.ErrorFields("initialize", err))
			return fmt.Errorf("initializer %d: %w", n+1, err)
		}
	}

	i.log.Info("Database initialized", logger.DurationFields("initialize", time.Since(start)))
	return nil
}

// CreateTables migrates every registered model, then creates every
// registered view. Existing tables and views are kept.
func (i *Interface) CreateTables(ctx context.Context) error {
	engine := i.Engine()
	if engine == nil {
		return ErrNotSetUp
	}
	db := engine.WithContext(ctx)

	models := i.metadata.Models()
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return fmt.Errorf("create tables: %w", FromDatabase(err, "table"))
		}
	}

	views := i.metadata.Views()
	for _, v := range views {
		query, err := v.render(db)
		if err != nil {
			return fmt.Errorf("create views: %w", err)
		}
		stmt := fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS %s", db.Statement.Quote(v.Name), query)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create view %s: %w", v.Name, FromDatabase(err, "view"))
		}
	}

	i.log.Debug("Tables created", map[string]interface{}{
		"tables": len(models),
		"views":  len(views),
	})
	return nil
}

// DropViews drops every registered view, in reverse registration order.
func (i *Interface) DropViews(ctx context.Context) error {
	engine := i.Engine()
	if engine == nil {
		return ErrNotSetUp
	}
	db := engine.WithContext(ctx)

	views := i.metadata.Views()
	for n := len(views) - 1; n >= 0; n-- {
		stmt := "DROP VIEW IF EXISTS " + db.Statement.Quote(views[n].Name)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("drop view %s: %w", views[n].Name, FromDatabase(err, "view"))
		}
	}
	return nil
}
