// Package testutil provides testing utilities for the database package.
//
// Component is an in-memory SQLite database behind a database.Interface. It
// implements testutil.TestComponent, so it plugs into testutil.T(t) and
// testutil.Manager:
//
//	db := testutil.NewComponent().WithModels(&User{})
//	fuiscetest.T(t).Setup(db)
//
//	testutil.MustLoadFixture(t, db.DB(), "users", []testutil.Row{
//	    {"name": "Alice"},
//	    {"name": "Bob"},
//	})
//	testutil.AssertRowCount(t, db.DB(), "users", 2)
//
// Reset truncates every table, keeping the schema. Snapshot and Restore copy
// rows in and out, with foreign keys checked once the restore commits.
package testutil
