// Package migration runs schema migrations against a fuisce SQLite database.
// It supports both file-based migrations (via golang-migrate) and
// programmatic gorm migrations.
//
// File-based migrations are read from any fs.FS, usually an embed.FS:
//
//	//go:embed migrations/*.sql
//	var migrationsFS embed.FS
//
//	iface := database.New(
//	    database.WithInitializer(migration.Initializer(migrationsFS, "migrations")),
//	)
//
// Files follow golang-migrate naming: VERSION_name.up.sql and VERSION_name.down.sql.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/kbukum/fuisce/database"
)

// DefaultTable is the version table used by file-based migrations.
const DefaultTable = "schema_migrations"

type options struct {
	table    string
	noTxWrap bool
}

// Option configures file-based migrations.
type Option func(*options)

// WithTable overrides the version table.
func WithTable(name string) Option {
	return func(o *options) { o.table = name }
}

// WithoutTxWrap runs each migration file outside a transaction. Needed for
// files that manage their own BEGIN/COMMIT.
func WithoutTxWrap() Option {
	return func(o *options) { o.noTxWrap = true }
}

// MigrateUp runs all pending migrations from dir in fsys.
// Returns nil if there are no new migrations to apply.
func MigrateUp(db *gorm.DB, fsys fs.FS, dir string, opts ...Option) error {
	m, err := newMigrator(db, fsys, dir, opts)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back all applied migrations. Use MigrateSteps for a
// partial rollback.
func MigrateDown(db *gorm.DB, fsys fs.FS, dir string, opts ...Option) error {
	m, err := newMigrator(db, fsys, dir, opts)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty flag.
// A database without applied migrations reports version 0.
func MigrateVersion(db *gorm.DB, fsys fs.FS, dir string, opts ...Option) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, fsys, dir, opts)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateSteps runs n migrations: positive n applies, negative n rolls back.
func MigrateSteps(db *gorm.DB, fsys fs.FS, dir string, n int, opts ...Option) error {
	m, err := newMigrator(db, fsys, dir, opts)
	if err != nil {
		return err
	}
	if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps: %w", err)
	}
	return nil
}

// MigrateReset drops every table and re-applies all migrations.
// WARNING: this destroys all data.
func MigrateReset(db *gorm.DB, fsys fs.FS, dir string, opts ...Option) error {
	m, err := newMigrator(db, fsys, dir, opts)
	if err != nil {
		return err
	}
	if err := m.Drop(); err != nil {
		return fmt.Errorf("migrate drop: %w", err)
	}

	// The version table went with the drop.
	m, err = newMigrator(db, fsys, dir, opts)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up after reset: %w", err)
	}
	return nil
}

// Initializer returns a database initializer that applies the migrations in
// dir after the model tables are created.
func Initializer(fsys fs.FS, dir string, opts ...Option) database.Initializer {
	return func(ctx context.Context, db *database.Interface, _ database.Host) error {
		engine := db.Engine()
		if engine == nil {
			return database.ErrNotSetUp
		}
		if err := MigrateUp(engine.WithContext(ctx), fsys, dir, opts...); err != nil {
			return err
		}
		db.Logger().Info("Migrations applied", map[string]interface{}{"dir": dir})
		return nil
	}
}

// newMigrator creates a golang-migrate instance over fsys.
// Callers must NOT call m.Close(): it would close the shared sql.DB.
func newMigrator(db *gorm.DB, fsys fs.FS, dir string, opts []Option) (*migrate.Migrate, error) {
	o := options{table: DefaultTable}
	for _, opt := range opts {
		opt(&o)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{
		MigrationsTable: o.table,
		NoTxWrap:        o.noTxWrap,
	})
	if err != nil {
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}

	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
