// Package testutil runs fuisce applications under test.
//
// The AppTestManager is the session-scoped plugin named "fuisce". It builds
// apps through the application factory on disposable SQLite databases: the
// database is initialized once into a template, and every app then starts
// from a copy of the template.
//
//	var manager = testutil.NewAppTestManager(blog.NewApp, &config.Config{Name: "blog"})
//
//	func TestMain(m *testing.M) {
//	    _ = testutil.RegisterPlugin(manager)
//	    os.Exit(testutil.Main(m))
//	}
//
//	func TestListPosts(t *testing.T) {
//	    a := testutil.T(t).PersistentApp(manager) // read-only, shared
//	    rr := testutil.Client(a).Get("/posts")
//	    ...
//	}
//
//	func TestCreatePost(t *testing.T) {
//	    a := testutil.T(t).App(manager) // own database, closed after the test
//	    rr := testutil.Client(a).PostJSON("/posts", post)
//	    ...
//	}
//
// TestComponent extends component.Component with Reset, Snapshot and
// Restore. Other packages provide test components for single layers, such as
// an in-memory database or a test HTTP server; a Manager runs several of
// them as one.
package testutil
