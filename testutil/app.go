package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/kbukum/fuisce/app"
	"github.com/kbukum/fuisce/component"
	"github.com/kbukum/fuisce/config"
	apperrors "github.com/kbukum/fuisce/errors"
	"github.com/kbukum/fuisce/logger"
)

// PluginName is the plugin name of the AppTestManager.
const PluginName = "fuisce"

const (
	templateFile   = "template.sqlite"
	persistentFile = "persistent.sqlite"
)

var _ TestComponent = (*AppTestManager)(nil)

// AppTestManager builds test applications on disposable SQLite databases.
//
// On Start it initializes a template database once, through a testing app,
// so that every later app starts from a copy of it instead of creating the
// tables again. The persistent app is shared by tests that do not modify the
// database; tests that do get an ephemeral app of their own from NewApp.
type AppTestManager struct {
	factory app.Factory
	cfg     *config.Config
	log     *logger.Logger
	baseDir string

	mu         sync.Mutex
	dir        string
	persistent *app.App
	ephemeral  map[*app.App]string
	seq        int
}

// AppOption configures an AppTestManager.
type AppOption func(*AppTestManager)

// WithManagerLogger sets the logger of the manager. Apps log through the
// logger built by the factory.
func WithManagerLogger(l *logger.Logger) AppOption {
	return func(m *AppTestManager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithBaseDir creates the session directory under dir instead of the
// system temporary directory.
func WithBaseDir(dir string) AppOption {
	return func(m *AppTestManager) { m.baseDir = dir }
}

// NewAppTestManager creates a manager that builds apps with factory from
// copies of cfg. A nil cfg builds apps named "test".
func NewAppTestManager(factory app.Factory, cfg *config.Config, opts ...AppOption) *AppTestManager {
	if cfg == nil {
		cfg = &config.Config{Name: "test"}
	}
	m := &AppTestManager{
		factory:   factory,
		cfg:       cfg.Clone(),
		log:       logger.WithComponent("testutil"),
		ephemeral: make(map[*app.App]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the plugin name.
func (m *AppTestManager) Name() string { return PluginName }

// Dir returns the session directory, or "" before Start.
func (m *AppTestManager) Dir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir
}

// TemplatePath returns the path of the initialized template database.
func (m *AppTestManager) TemplatePath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.templatePathLocked()
}

func (m *AppTestManager) templatePathLocked() string {
	if m.dir == "" {
		return ""
	}
	return filepath.Join(m.dir, templateFile)
}

// Start sets up the test session: it creates the session directory,
// initializes the template database through a testing app, then builds the
// persistent app on a copy of the template.
func (m *AppTestManager) Start(ctx context.Context) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir != "" {
		return apperrors.Conflict("app test manager already started")
	}
	if m.factory == nil {
		return apperrors.NotConfigured("app test manager has no app factory")
	}

	dir, err := os.MkdirTemp(m.baseDir, "fuisce-*")
	if err != nil {
		return apperrors.Internal(err)
	}
	m.dir = dir
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
			m.dir = ""
		}
	}()

	template, err := m.build(ctx, m.templatePathLocked(), false)
	if err != nil {
		return fmt.Errorf("initialize template database: %w", err)
	}
	if err := template.Close(); err != nil {
		return fmt.Errorf("close template app: %w", err)
	}

	if err := m.startPersistentLocked(ctx); err != nil {
		return err
	}
	m.log.Debug("App test session started", map[string]interface{}{"dir": dir})
	return nil
}

// build creates a testing app on the database at path.
func (m *AppTestManager) build(ctx context.Context, path string, preinitialized bool) (*app.App, error) {
	cfg := m.cfg.Clone()
	cfg.Environment = config.EnvTesting
	cfg.Testing = true
	cfg.Database.Path = path
	cfg.Database.Preinitialized = preinitialized

	a, err := m.factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.Internal(errors.New("app factory returned nil app"))
	}
	return a, nil
}

func (m *AppTestManager) startPersistentLocked(ctx context.Context) error {
	path := filepath.Join(m.dir, persistentFile)
	if err := copyFile(m.templatePathLocked(), path); err != nil {
		return fmt.Errorf("copy template database: %w", err)
	}
	a, err := m.build(ctx, path, true)
	if err != nil {
		return fmt.Errorf("create persistent app: %w", err)
	}
	m.persistent = a
	return nil
}

// PersistentApp returns the app shared by the whole session, or nil before
// Start. Tests must not modify its database.
func (m *AppTestManager) PersistentApp() *app.App {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistent
}

// NewApp returns an ephemeral app on a fresh copy of the template database.
// Close it with CloseApp, or leave it to Reset or Stop.
func (m *AppTestManager) NewApp(ctx context.Context) (*app.App, error) {
	m.mu.Lock()
	if m.dir == "" {
		m.mu.Unlock()
		return nil, apperrors.NotConfigured("app test manager is not started")
	}
	m.seq++
	dir := m.dir
	path := filepath.Join(dir, fmt.Sprintf("app-%d.sqlite", m.seq))
	template := m.templatePathLocked()
	m.mu.Unlock()

	if err := copyFile(template, path); err != nil {
		return nil, fmt.Errorf("copy template database: %w", err)
	}
	a, err := m.build(ctx, path, true)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("create app: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir != dir {
		// The session was stopped while the app was built.
		err := closeAndRemove(a, path)
		_ = os.Remove(dir)
		return nil, errors.Join(apperrors.NotConfigured("app test manager was stopped"), err)
	}
	m.ephemeral[a] = path
	return a, nil
}

// CloseApp closes an ephemeral app and removes its database file. Apps not
// created by NewApp are ignored.
func (m *AppTestManager) CloseApp(a *app.App) error {
	m.mu.Lock()
	path, ok := m.ephemeral[a]
	delete(m.ephemeral, a)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return closeAndRemove(a, path)
}

func closeAndRemove(a *app.App, path string) error {
	err := a.Close()
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// closeEphemeralLocked closes every ephemeral app.
func (m *AppTestManager) closeEphemeralLocked() error {
	var errs []error
	for a, path := range m.ephemeral {
		if err := closeAndRemove(a, path); err != nil {
			errs = append(errs, err)
		}
	}
	m.ephemeral = make(map[*app.App]string)
	return errors.Join(errs...)
}

// closePersistentLocked closes the persistent app, keeping its database file.
func (m *AppTestManager) closePersistentLocked() error {
	if m.persistent == nil {
		return nil
	}
	err := m.persistent.Close()
	m.persistent = nil
	return err
}

// Reset closes every ephemeral app and recreates the persistent app on a new
// copy of the template.
func (m *AppTestManager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir == "" {
		return apperrors.NotConfigured("app test manager is not started")
	}
	if err := errors.Join(m.closeEphemeralLocked(), m.closePersistentLocked()); err != nil {
		return err
	}
	return m.startPersistentLocked(ctx)
}

// Snapshot returns the bytes of the persistent database file.
func (m *AppTestManager) Snapshot(_ context.Context) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persistent == nil {
		return nil, apperrors.NotConfigured("app test manager is not started")
	}
	data, err := os.ReadFile(m.persistent.DatabasePath())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return data, nil
}

// Restore writes a snapshot back to the persistent database and rebuilds the
// persistent app on it.
func (m *AppTestManager) Restore(ctx context.Context, snapshot interface{}) error {
	data, ok := snapshot.([]byte)
	if !ok {
		return apperrors.InvalidInput("snapshot", fmt.Sprintf("expected []byte, got %T", snapshot))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persistent == nil {
		return apperrors.NotConfigured("app test manager is not started")
	}
	path := m.persistent.DatabasePath()
	if err := m.closePersistentLocked(); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return apperrors.Internal(err)
	}
	a, err := m.build(ctx, path, true)
	if err != nil {
		return fmt.Errorf("create persistent app: %w", err)
	}
	m.persistent = a
	return nil
}

// Stop tears down the session: every app is closed and the session
// directory removed. Safe to call multiple times.
func (m *AppTestManager) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir == "" {
		return nil
	}
	err := errors.Join(m.closeEphemeralLocked(), m.closePersistentLocked())
	if rmErr := os.RemoveAll(m.dir); rmErr != nil {
		err = errors.Join(err, rmErr)
	}
	m.log.Debug("App test session stopped", map[string]interface{}{"dir": m.dir})
	m.dir = ""
	return err
}

// Health reports whether the session is running and the persistent
// database answers.
func (m *AppTestManager) Health(ctx context.Context) component.Health {
	m.mu.Lock()
	persistent := m.persistent
	m.mu.Unlock()

	if persistent == nil {
		return component.Health{Name: PluginName, Status: component.StatusUnhealthy, Message: "not started"}
	}
	if db := persistent.DB(); db != nil {
		if h := db.CheckHealth(ctx); !h.Connected {
			return component.Health{Name: PluginName, Status: component.StatusUnhealthy, Message: h.Error}
		}
	}
	return component.Health{Name: PluginName, Status: component.StatusHealthy}
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
