package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kbukum/fuisce/logger"
)

type testAuthor struct {
	ID   uint
	Name string `gorm:"uniqueIndex"`
}

type testBook struct {
	ID       uint
	Title    string
	AuthorID uint
	Author   testAuthor `gorm:"constraint:OnDelete:RESTRICT"`
}

func testMetadata() *Metadata {
	md := NewMetadata()
	md.Register(&testAuthor{}, &testBook{})
	md.RegisterView(View{Name: "author_names", SQL: "SELECT name FROM test_authors"})
	return md
}

// newTestInterface returns an interface with an engine on a fresh file and
// the test tables created.
func newTestInterface(t *testing.T, opts ...Option) *Interface {
	t.Helper()
	opts = append([]Option{WithMetadata(testMetadata()), WithLogger(logger.Nop())}, opts...)
	iface := New(opts...)
	ctx := context.Background()
	if err := iface.SetupEngine(ctx, filepath.Join(t.TempDir(), "test.sqlite")); err != nil {
		t.Fatalf("SetupEngine failed: %v", err)
	}
	t.Cleanup(func() { _ = iface.Close() })
	if err := iface.CreateTables(ctx); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	return iface
}

func countRows(t *testing.T, iface *Interface, table string) int64 {
	t.Helper()
	var n int64
	if err := iface.Engine().Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func hasView(t *testing.T, iface *Interface, name string) bool {
	t.Helper()
	var n int64
	err := iface.Engine().Raw("SELECT count(*) FROM sqlite_master WHERE type = 'view' AND name = ?", name).Scan(&n).Error
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}
