package testutil

import (
	"fmt"
	"testing"

	"gorm.io/gorm"
)

// Row is one table row keyed by column name.
type Row = map[string]interface{}

const fixtureBatchSize = 100

// LoadFixture inserts rows into table.
func LoadFixture(db *gorm.DB, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := db.Table(table).CreateInBatches(rows, fixtureBatchSize).Error; err != nil {
		return fmt.Errorf("load fixture into %s: %w", table, err)
	}
	return nil
}

// MustLoadFixture is LoadFixture that fails the test on error.
func MustLoadFixture(t testing.TB, db *gorm.DB, table string, rows []Row) {
	t.Helper()
	if err := LoadFixture(db, table, rows); err != nil {
		t.Fatal(err)
	}
}

// TruncateTable deletes every row of table.
func TruncateTable(db *gorm.DB, table string) error {
	return db.Exec("DELETE FROM " + db.Statement.Quote(table)).Error
}

// TruncateAllTables empties every table, keeping the schema.
func TruncateAllTables(db *gorm.DB) error {
	return deferForeignKeys(db, truncateAll)
}

func truncateAll(tx *gorm.DB) error {
	tables, err := GetTableNames(tx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	for _, table := range tables {
		if err := TruncateTable(tx, table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// deferForeignKeys runs fn in a transaction whose foreign keys are checked
// on commit, so tables can be written in any order.
func deferForeignKeys(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("PRAGMA defer_foreign_keys = ON").Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

func TableExists(db *gorm.DB, table string) bool {
	return db.Migrator().HasTable(table)
}

// GetTableNames lists the user tables in name order.
func GetTableNames(db *gorm.DB) ([]string, error) {
	return schemaNames(db, "table")
}

// GetViewNames lists the views in name order.
func GetViewNames(db *gorm.DB) ([]string, error) {
	return schemaNames(db, "view")
}

func schemaNames(db *gorm.DB, kind string) ([]string, error) {
	var names []string
	err := db.Raw("SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name", kind).
		Scan(&names).Error
	return names, err
}

// CountRows counts the rows of a table or view.
func CountRows(db *gorm.DB, table string) (int64, error) {
	var n int64
	err := db.Table(table).Count(&n).Error
	return n, err
}

func AssertTableEmpty(t testing.TB, db *gorm.DB, table string) {
	t.Helper()
	AssertRowCount(t, db, table, 0)
}

func AssertRowCount(t testing.TB, db *gorm.DB, table string, want int64) {
	t.Helper()
	got, err := CountRows(db, table)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Errorf("%s has %d rows, want %d", table, got, want)
	}
}
