package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kbukum/fuisce/app"
	"github.com/kbukum/fuisce/component"
	"github.com/kbukum/fuisce/config"
	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type entry struct {
	ID   uint
	Text string
}

type entryRequest struct {
	Text string `json:"text"`
}

func entryFactory(ctx context.Context, cfg *config.Config) (*app.App, error) {
	a, err := app.New(cfg, app.WithLogger(logger.Nop()))
	if err != nil {
		return nil, err
	}
	err = a.SelectDatabase(ctx, func(context.Context, database.Host) error {
		r := a.Engine()
		r.POST("/entries", func(c *gin.Context) {
			var req entryRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			err := database.Transact(c.Request.Context(), func(_ context.Context, tx *gorm.DB) error {
				return tx.Create(&entry{Text: req.Text}).Error
			})
			if err != nil {
				_ = c.Error(err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Status(http.StatusCreated)
		})
		r.GET("/entries", func(c *gin.Context) {
			var n int64
			a.DB().Session(c.Request.Context()).Model(&entry{}).Count(&n)
			c.JSON(http.StatusOK, gin.H{"count": n})
		})
		return nil
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// newEntryManager returns a started manager whose template is seeded with
// one entry; runs counts the initializer runs.
func newEntryManager(t *testing.T, runs *atomic.Int32) *AppTestManager {
	t.Helper()
	md := database.NewMetadata()
	md.Register(&entry{})

	cfg := &config.Config{Name: "entries"}
	cfg.Database.InterfaceOptions = []database.Option{
		database.WithMetadata(md),
		database.WithLogger(logger.Nop()),
		database.WithInitializer(func(ctx context.Context, db *database.Interface, _ database.Host) error {
			runs.Add(1)
			return db.Session(ctx).Create(&entry{Text: "seed"}).Error
		}),
	}

	m := NewAppTestManager(entryFactory, cfg, WithBaseDir(t.TempDir()), WithManagerLogger(logger.Nop()))
	T(t).Setup(m)
	return m
}

func countEntries(t *testing.T, a *app.App) int64 {
	t.Helper()
	var n int64
	if err := a.DB().Engine().Model(&entry{}).Count(&n).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	return n
}

func TestAppTestManager_Start(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)

	if m.Name() != "fuisce" {
		t.Errorf("Name = %q", m.Name())
	}
	if _, err := os.Stat(m.TemplatePath()); err != nil {
		t.Errorf("template database missing: %v", err)
	}
	p := m.PersistentApp()
	if p == nil {
		t.Fatal("expected a persistent app")
	}
	if !p.Testing() || !p.DatabasePreinitialized() {
		t.Error("persistent app should be a pre-initialized testing app")
	}
	if p.DatabasePath() == m.TemplatePath() {
		t.Error("persistent app should run on a copy of the template")
	}
	if countEntries(t, p) != 1 {
		t.Error("persistent app should see the template's seed data")
	}
	if runs.Load() != 1 {
		t.Errorf("initializers ran %d times, want once for the template", runs.Load())
	}
	if h := m.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("health = %+v", h)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestAppTestManager_EphemeralAppsAreIsolated(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)

	a1 := T(t).App(m)
	a2 := T(t).App(m)
	if a1.DatabasePath() == a2.DatabasePath() {
		t.Fatal("ephemeral apps should not share a database")
	}

	rr := Client(a1).PostJSON("/entries", entryRequest{Text: "one"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST status = %d", rr.Code)
	}
	if got := Client(a1).Get("/entries").Body.String(); !strings.Contains(got, `"count":2`) {
		t.Errorf("a1 entries = %s", got)
	}
	if countEntries(t, a2) != 1 || countEntries(t, m.PersistentApp()) != 1 {
		t.Error("writes in one app should not reach the others")
	}
	if runs.Load() != 1 {
		t.Errorf("ephemeral apps should not be initialized again, runs = %d", runs.Load())
	}
}

func TestAppTestManager_CloseApp(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)

	a, err := m.NewApp(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	path := a.DatabasePath()
	if err := m.CloseApp(a); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("CloseApp should remove the database file")
	}
	if err := m.CloseApp(a); err != nil {
		t.Errorf("closing an unknown app should be a no-op: %v", err)
	}
}

func TestAppTestManager_Reset(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)
	ctx := context.Background()

	eph, err := m.NewApp(ctx)
	if err != nil {
		t.Fatal(err)
	}
	before := m.PersistentApp()
	if rr := Client(before).PostJSON("/entries", entryRequest{Text: "dirty"}); rr.Code != http.StatusCreated {
		t.Fatalf("POST status = %d", rr.Code)
	}

	if err := m.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := os.Stat(eph.DatabasePath()); !os.IsNotExist(err) {
		t.Error("Reset should close ephemeral apps")
	}
	after := m.PersistentApp()
	if after == before {
		t.Error("Reset should recreate the persistent app")
	}
	if countEntries(t, after) != 1 {
		t.Error("persistent database should be back to the template")
	}
}

func TestAppTestManager_SnapshotRestore(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)
	h := T(t)

	snap := h.Snapshot(m)
	Client(m.PersistentApp()).PostJSON("/entries", entryRequest{Text: "later"})
	if countEntries(t, m.PersistentApp()) != 2 {
		t.Fatal("expected the new entry")
	}

	h.Restore(m, snap)
	if countEntries(t, m.PersistentApp()) != 1 {
		t.Error("Restore should bring back the snapshot")
	}
	if err := m.Restore(context.Background(), "nope"); err == nil {
		t.Error("Restore with a bad snapshot should fail")
	}
}

func TestAppTestManager_Stop(t *testing.T) {
	md := database.NewMetadata()
	md.Register(&entry{})
	cfg := &config.Config{Name: "entries"}
	cfg.Database.InterfaceOptions = []database.Option{database.WithMetadata(md), database.WithLogger(logger.Nop())}
	m := NewAppTestManager(entryFactory, cfg, WithBaseDir(t.TempDir()))
	ctx := context.Background()

	if _, err := m.NewApp(ctx); err == nil {
		t.Error("NewApp before Start should fail")
	}
	if h := m.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Error("manager should be unhealthy before Start")
	}
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	dir := m.Dir()
	if _, err := m.NewApp(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Stop should remove the session directory")
	}
	if m.PersistentApp() != nil || m.Dir() != "" {
		t.Error("Stop should release the apps")
	}
	if err := m.Stop(ctx); err != nil {
		t.Errorf("second Stop should be a no-op: %v", err)
	}
}

func TestAppTestManager_FactoryError(t *testing.T) {
	base := t.TempDir()
	boom := errors.New("boom")
	m := NewAppTestManager(func(context.Context, *config.Config) (*app.App, error) {
		return nil, boom
	}, nil, WithBaseDir(base))

	if err := m.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
	entries, _ := os.ReadDir(base)
	if len(entries) != 0 {
		t.Error("a failed Start should remove the session directory")
	}
	if err := NewAppTestManager(nil, nil).Start(context.Background()); err == nil {
		t.Error("Start without a factory should fail")
	}
}

func TestAppTestManager_TemplateIsTestingApp(t *testing.T) {
	var seen []*config.Config
	md := database.NewMetadata()
	md.Register(&entry{})
	cfg := &config.Config{Name: "entries", Environment: config.EnvProduction}
	cfg.Database.InterfaceOptions = []database.Option{database.WithMetadata(md), database.WithLogger(logger.Nop())}
	m := NewAppTestManager(func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		seen = append(seen, cfg)
		return entryFactory(ctx, cfg)
	}, cfg, WithBaseDir(t.TempDir()))
	T(t).Setup(m)

	if len(seen) != 2 {
		t.Fatalf("expected template and persistent builds, got %d", len(seen))
	}
	if !seen[0].Testing || seen[0].Database.Preinitialized || filepath.Base(seen[0].Database.Path) != "template.sqlite" {
		t.Errorf("unexpected template config %+v", seen[0].Database)
	}
	if !seen[1].Testing || !seen[1].Database.Preinitialized {
		t.Errorf("unexpected persistent config %+v", seen[1].Database)
	}
}

func TestAppTestManager_Parallel(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)

	for i := range 8 {
		t.Run(fmt.Sprintf("app-%d", i), func(t *testing.T) {
			t.Parallel()
			a := T(t).App(m)
			if rr := Client(a).PostJSON("/entries", entryRequest{Text: "mine"}); rr.Code != http.StatusCreated {
				t.Fatalf("POST status = %d", rr.Code)
			}
			if n := countEntries(t, a); n != 2 {
				t.Errorf("each app should only see its own writes, count = %d", n)
			}
			if got := Client(T(t).PersistentApp(m)).Get("/entries").Body.String(); !strings.Contains(got, `"count":1`) {
				t.Errorf("persistent app entries = %s", got)
			}
		})
	}
	t.Cleanup(func() {
		if runs.Load() != 1 {
			t.Errorf("initializers ran %d times", runs.Load())
		}
	})
}

func TestAppTestManager_NewAppAfterStop(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)
	ctx := context.Background()

	var wg sync.WaitGroup
	apps := make(chan *app.App, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a, err := m.NewApp(ctx); err == nil {
				apps <- a
			}
		}()
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	close(apps)

	for a := range apps {
		if _, err := os.Stat(a.DatabasePath()); err == nil {
			t.Errorf("an app created around Stop should not outlive it: %s", a.DatabasePath())
		}
	}
	if _, err := m.NewApp(ctx); err == nil {
		t.Error("NewApp after Stop should fail")
	}
}

func TestTHelper_PersistentApp(t *testing.T) {
	var runs atomic.Int32
	m := newEntryManager(t, &runs)
	if T(t).PersistentApp(m) != m.PersistentApp() {
		t.Error("PersistentApp should return the manager's persistent app")
	}
}

func TestClient(t *testing.T) {
	r := gin.New()
	r.POST("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetHeader("Content-Type")+"|"+c.GetHeader("X-Test"))
	})
	r.DELETE("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	c := NewClient(r).SetHeader("X-Test", "yes")

	if got := c.PostJSON("/echo", map[string]string{"a": "b"}).Body.String(); got != "application/json|yes" {
		t.Errorf("PostJSON echo = %q", got)
	}
	if got := c.Post("/echo", "", nil).Body.String(); got != "|yes" {
		t.Errorf("Post echo = %q", got)
	}
	if rr := c.Delete("/echo"); rr.Code != http.StatusNoContent {
		t.Errorf("Delete status = %d", rr.Code)
	}
	if rr := c.Get("/missing"); rr.Code != http.StatusNotFound {
		t.Errorf("Get status = %d", rr.Code)
	}
}
