package cli

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/fuisce/app"
	"github.com/kbukum/fuisce/config"
	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/logger"
	"github.com/kbukum/fuisce/version"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type post struct {
	ID    uint
	Title string
}

var migrationsFS = fstest.MapFS{
	"sql/1_tags.up.sql":    {Data: []byte("CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT);")},
	"sql/1_tags.down.sql":  {Data: []byte("DROP TABLE tags;")},
	"sql/2_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
	"sql/2_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
}

func blogFactory(ctx context.Context, cfg *config.Config) (*app.App, error) {
	a, err := app.New(cfg, app.WithLogger(logger.Nop()))
	if err != nil {
		return nil, err
	}
	if err := a.SelectDatabase(ctx, nil); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// setup writes a config file for a production app and installs a default
// interface with the post model; seeds counts the initializer runs.
func setup(t *testing.T, seeds *int) (cfgFile, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "blog.sqlite")
	cfgFile = filepath.Join(dir, "config.yml")
	content := fmt.Sprintf("name: blog\nenvironment: production\ndatabase:\n  path: %s\n", dbPath)
	if err := os.WriteFile(cfgFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	md := database.NewMetadata()
	md.Register(&post{})
	md.RegisterView(database.View{Name: "post_titles", SQL: "SELECT title FROM posts"})
	database.CreateDefaultInterface(
		database.WithMetadata(md),
		database.WithLogger(logger.Nop()),
		database.WithInitializer(func(context.Context, *database.Interface, database.Host) error {
			*seeds++
			return nil
		}),
	)
	t.Cleanup(database.ResetDefaultInterface)
	return cfgFile, dbPath
}

func execute(t *testing.T, ctx context.Context, args []string, opts ...Option) (string, error) {
	t.Helper()
	cmd := NewRootCommand(blogFactory, append([]Option{WithName("blog")}, opts...)...)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func inspect(t *testing.T, path string) *database.Interface {
	t.Helper()
	iface := database.New(database.WithMetadata(database.NewMetadata()), database.WithLogger(logger.Nop()))
	if err := iface.SetupEngine(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = iface.Close() })
	return iface
}

func TestVersion(t *testing.T) {
	out, err := execute(t, context.Background(), []string{"version", "--short"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version.Get().Short() {
		t.Errorf("version output = %q", out)
	}
	out, _ = execute(t, context.Background(), []string{"version"})
	if !strings.HasPrefix(out, "blog ") {
		t.Errorf("long version output = %q", out)
	}
}

func TestHelp(t *testing.T) {
	out, err := execute(t, context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"init-db", "serve", "version"} {
		if !strings.Contains(out, name) {
			t.Errorf("help should list %s:\n%s", name, out)
		}
	}
	if strings.Contains(out, "migrate") {
		t.Error("migrate should only be present with migrations")
	}
}

func TestInitDB(t *testing.T) {
	var seeds int
	cfgFile, dbPath := setup(t, &seeds)

	out, err := execute(t, context.Background(), []string{"init-db", "--config", cfgFile})
	if err != nil {
		t.Fatalf("init-db failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Initialized the database") {
		t.Errorf("output = %q", out)
	}
	if seeds != 1 {
		t.Errorf("initializer ran %d times", seeds)
	}

	db := inspect(t, dbPath).Engine()
	if !db.Migrator().HasTable("posts") {
		t.Error("init-db should create the tables")
	}
	var views int64
	db.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'view' AND name = 'post_titles'").Scan(&views)
	if views != 1 {
		t.Error("init-db should create the views")
	}
}

func TestInitDB_DropViews(t *testing.T) {
	var seeds int
	cfgFile, _ := setup(t, &seeds)
	ctx := context.Background()

	if _, err := execute(t, ctx, []string{"init-db", "-c", cfgFile}); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, ctx, []string{"init-db", "-c", cfgFile, "--drop-views"}); err != nil {
		t.Fatalf("init-db --drop-views failed: %v", err)
	}
	if seeds != 2 {
		t.Errorf("initializer ran %d times", seeds)
	}
}

func TestInitDB_InvalidConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(cfgFile, []byte("name: blog\nenvironment: moon\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, context.Background(), []string{"init-db", "-c", cfgFile}); err == nil {
		t.Error("invalid environment should fail")
	}
}

func TestInitDB_CreatesDefaultInterface(t *testing.T) {
	database.ResetDefaultInterface()
	t.Cleanup(database.ResetDefaultInterface)
	dbPath := filepath.Join(t.TempDir(), "nested", "blog.sqlite")
	cfgFile := filepath.Join(t.TempDir(), "config.yml")
	content := fmt.Sprintf("name: blog\nenvironment: production\ndatabase:\n  path: %s\n", dbPath)
	if err := os.WriteFile(cfgFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, context.Background(), []string{"init-db", "-c", cfgFile}); err != nil {
		t.Fatalf("init-db failed: %v", err)
	}
	if database.DefaultInterface() == nil {
		t.Error("init-db should create the default interface")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file should exist: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	var seeds int
	cfgFile, dbPath := setup(t, &seeds)
	ctx := context.Background()
	withMigrations := WithMigrations(migrationsFS, "sql")

	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, ctx, append([]string{"-c", cfgFile}, args...), withMigrations)
		if err != nil {
			t.Fatalf("%v failed: %v\n%s", args, err, out)
		}
		return out
	}

	run("migrate", "up")
	if out := run("migrate", "version"); !strings.Contains(out, "version=2 dirty=false") {
		t.Errorf("version output = %q", out)
	}
	run("migrate", "steps", "--", "-1")
	if out := run("migrate", "version"); !strings.Contains(out, "version=1") {
		t.Errorf("version after step back = %q", out)
	}
	run("migrate", "down")

	if inspect(t, dbPath).Engine().Migrator().HasTable("tags") {
		t.Error("migrate down should drop the tables")
	}
	if _, err := execute(t, ctx, []string{"migrate", "steps", "x", "-c", cfgFile}, withMigrations); err == nil {
		t.Error("invalid step count should fail")
	}
}

func TestServe(t *testing.T) {
	var seeds int
	cfgFile, _ := setup(t, &seeds)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan bool, 1)
	go func() {
		defer cancel()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if conn, err := net.Dial("tcp", l.Addr().String()); err == nil {
				conn.Close()
				served <- true
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		served <- false
	}()
	if _, err := execute(t, ctx, []string{"serve", "-c", cfgFile, "--port", strconv.Itoa(port)}); err != nil {
		t.Errorf("serve should shut down cleanly on cancellation: %v", err)
	}
	if !<-served {
		t.Error("serve should listen on the given port")
	}
}
