package cli

import (
	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/database/migration"
)

// migrator runs the configured migrations on the database of an app.
type migrator struct {
	env *environment
	db  *database.Interface
}

func (m migrator) args() []migration.Option { return m.env.opts.migrationOpts }

func (m migrator) up() error {
	return migration.MigrateUp(m.db.Engine(), m.env.opts.migrations, m.env.opts.migrationsDir, m.args()...)
}

func (m migrator) down() error {
	return migration.MigrateDown(m.db.Engine(), m.env.opts.migrations, m.env.opts.migrationsDir, m.args()...)
}

func (m migrator) steps(n int) error {
	return migration.MigrateSteps(m.db.Engine(), m.env.opts.migrations, m.env.opts.migrationsDir, n, m.args()...)
}

func (m migrator) version() (uint, bool, error) {
	return migration.MigrateVersion(m.db.Engine(), m.env.opts.migrations, m.env.opts.migrationsDir, m.args()...)
}
