package migration

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/logger"
)

// RunnerTable records the programmatic migrations applied by a Runner.
const RunnerTable = "app_migrations"

// Migration describes a single gorm-based schema migration.
type Migration struct {
	ID          string
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

// Runner applies gorm-based migrations tracked in RunnerTable. Each
// migration runs in its own transaction together with its bookkeeping row.
type Runner struct {
	log        *logger.Logger
	migrations []Migration
}

// NewRunner creates a runner. A nil logger falls back to the global one.
func NewRunner(log *logger.Logger) *Runner {
	if log == nil {
		log = logger.WithComponent("migration")
	}
	return &Runner{log: log}
}

// Add registers migrations, applied in registration order.
func (r *Runner) Add(migrations ...Migration) *Runner {
	r.migrations = append(r.migrations, migrations...)
	return r
}

// Run applies all pending migrations in order.
func (r *Runner) Run(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := createRunnerTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range r.migrations {
		applied, err := isApplied(db, m.ID)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			r.log.Debug("Migration already applied", map[string]interface{}{"id": m.ID})
			continue
		}
		if m.Up == nil {
			return fmt.Errorf("migration %s has no Up step", m.ID)
		}

		r.log.Info("Applying migration", map[string]interface{}{
			"id":          m.ID,
			"description": m.Description,
		})
		start := time.Now()
		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Exec("INSERT INTO "+RunnerTable+" (id, description) VALUES (?, ?)", m.ID, m.Description).Error
		}); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, database.FromDatabase(err, "migration"))
		}
		r.log.Info("Migration applied", logger.DurationFields(m.ID, time.Since(start)))
	}
	return nil
}

// Rollback reverts the most recently applied migration known to the runner.
// It returns false when nothing is left to roll back.
func (r *Runner) Rollback(ctx context.Context, db *gorm.DB) (bool, error) {
	db = db.WithContext(ctx)
	if err := createRunnerTable(db); err != nil {
		return false, fmt.Errorf("failed to create migrations table: %w", err)
	}

	for n := len(r.migrations) - 1; n >= 0; n-- {
		m := r.migrations[n]
		applied, err := isApplied(db, m.ID)
		if err != nil {
			return false, fmt.Errorf("failed to check migration status: %w", err)
		}
		if !applied {
			continue
		}
		if m.Down == nil {
			return false, fmt.Errorf("migration %s has no Down step", m.ID)
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Exec("DELETE FROM "+RunnerTable+" WHERE id = ?", m.ID).Error
		})
		if err != nil {
			return false, fmt.Errorf("failed to roll back migration %s: %w", m.ID, database.FromDatabase(err, "migration"))
		}
		r.log.Info("Migration rolled back", map[string]interface{}{"id": m.ID})
		return true, nil
	}
	return false, nil
}

// Applied returns the IDs of applied migrations in the order they were applied.
func (r *Runner) Applied(ctx context.Context, db *gorm.DB) ([]string, error) {
	db = db.WithContext(ctx)
	if err := createRunnerTable(db); err != nil {
		return nil, err
	}
	var ids []string
	err := db.Table(RunnerTable).Order("applied_at, rowid").Pluck("id", &ids).Error
	return ids, err
}

// Initializer returns a database initializer that runs the migrations on the
// interface's current session.
func (r *Runner) Initializer() database.Initializer {
	return func(ctx context.Context, db *database.Interface, _ database.Host) error {
		session := db.Session(ctx)
		if session == nil {
			return database.ErrNotSetUp
		}
		return r.Run(ctx, session)
	}
}

func createRunnerTable(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + RunnerTable + ` (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
}

func isApplied(db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.Table(RunnerTable).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// CreateIndexIfNotExists creates an index unless one with that name exists.
func CreateIndexIfNotExists(tx *gorm.DB, table, index, columns string) error {
	return tx.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		tx.Statement.Quote(index), tx.Statement.Quote(table), columns)).Error
}

// DropIndexIfExists drops an index if it exists.
func DropIndexIfExists(tx *gorm.DB, index string) error {
	return tx.Exec("DROP INDEX IF EXISTS " + tx.Statement.Quote(index)).Error
}

// AddColumnIfNotExists adds a column to a table unless the column exists.
func AddColumnIfNotExists(tx *gorm.DB, table, column, dataType string) error {
	var count int64
	err := tx.Raw("SELECT count(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		tx.Statement.Quote(table), tx.Statement.Quote(column), dataType)).Error
}
