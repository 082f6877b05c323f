package testutil

import (
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tc := newPetComponent(t)
	db := tc.DB()

	err := LoadFixture(db, "owners", []Row{
		{"name": "Alice"},
		{"name": "Bob"},
	})
	if err != nil {
		t.Fatalf("LoadFixture() failed: %v", err)
	}

	var names []string
	db.Raw("SELECT name FROM owners ORDER BY name").Scan(&names)
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
		t.Errorf("names = %v, want [Alice Bob]", names)
	}
}

func TestLoadFixture_EmptyData(t *testing.T) {
	tc := newPetComponent(t)
	if err := LoadFixture(tc.DB(), "owners", nil); err != nil {
		t.Errorf("LoadFixture() with empty data failed: %v", err)
	}
	AssertTableEmpty(t, tc.DB(), "owners")
}

func TestLoadFixture_ForeignKeyViolation(t *testing.T) {
	tc := newPetComponent(t)
	err := LoadFixture(tc.DB(), "pets", []Row{{"name": "Stray", "owner_id": 42}})
	if err == nil {
		t.Error("expected a foreign key violation")
	}
}

func TestLoadFixture_MissingTable(t *testing.T) {
	tc := newPetComponent(t)
	if err := LoadFixture(tc.DB(), "nope", []Row{{"a": 1}}); err == nil {
		t.Error("expected error for a missing table")
	}
}

func TestTruncateTable(t *testing.T) {
	tc := newPetComponent(t)
	seed(t, tc)

	if err := TruncateTable(tc.DB(), "pets"); err != nil {
		t.Fatalf("TruncateTable() failed: %v", err)
	}
	AssertTableEmpty(t, tc.DB(), "pets")
	AssertRowCount(t, tc.DB(), "owners", 1)
}

func TestTruncateAllTables_ParentFirst(t *testing.T) {
	tc := newPetComponent(t)
	seed(t, tc)

	// owners sorts before pets, so the parent rows go first.
	if err := TruncateAllTables(tc.DB()); err != nil {
		t.Fatalf("TruncateAllTables() failed: %v", err)
	}
	AssertTableEmpty(t, tc.DB(), "owners")
	AssertTableEmpty(t, tc.DB(), "pets")
}

func TestGetTableNames(t *testing.T) {
	tc := newPetComponent(t)

	tables, err := GetTableNames(tc.DB())
	if err != nil {
		t.Fatalf("GetTableNames() failed: %v", err)
	}
	if len(tables) != 2 || tables[0] != "owners" || tables[1] != "pets" {
		t.Errorf("tables = %v, want [owners pets]", tables)
	}
}

func TestTableExists(t *testing.T) {
	tc := newPetComponent(t)
	if !TableExists(tc.DB(), "owners") {
		t.Error("owners should exist")
	}
	if TableExists(tc.DB(), "nope") {
		t.Error("nope should not exist")
	}
}

func TestCountRows(t *testing.T) {
	tc := newPetComponent(t)
	seed(t, tc)

	n, err := CountRows(tc.DB(), "pets")
	if err != nil || n != 2 {
		t.Errorf("CountRows() = %d, %v; want 2", n, err)
	}
	if _, err := CountRows(tc.DB(), "nope"); err == nil {
		t.Error("expected error for a missing table")
	}
}
