package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kbukum/fuisce/logger"
)

var plugins = struct {
	mu     sync.RWMutex
	byName map[string]TestComponent
	order  []string
}{byName: make(map[string]TestComponent)}

// RegisterPlugin registers a session-scoped test component under its name.
// Main starts every registered plugin before the tests run.
func RegisterPlugin(c TestComponent) error {
	plugins.mu.Lock()
	defer plugins.mu.Unlock()
	name := c.Name()
	if _, exists := plugins.byName[name]; exists {
		return fmt.Errorf("test plugin %s already registered", name)
	}
	plugins.byName[name] = c
	plugins.order = append(plugins.order, name)
	return nil
}

// Plugin returns the plugin registered under name, or nil.
func Plugin(name string) TestComponent {
	plugins.mu.RLock()
	defer plugins.mu.RUnlock()
	return plugins.byName[name]
}

// Plugins returns the registered plugins in registration order.
func Plugins() []TestComponent {
	plugins.mu.RLock()
	defer plugins.mu.RUnlock()
	out := make([]TestComponent, 0, len(plugins.order))
	for _, name := range plugins.order {
		out = append(out, plugins.byName[name])
	}
	return out
}

// UnregisterPlugins removes every registered plugin.
func UnregisterPlugins() {
	plugins.mu.Lock()
	plugins.byName = make(map[string]TestComponent)
	plugins.order = nil
	plugins.mu.Unlock()
}

// Main runs the tests of a package inside a test session: the registered
// plugins, then components, are started before m.Run and stopped after it.
// Use it from TestMain:
//
//	var manager = testutil.NewAppTestManager(blog.NewApp, cfg)
//
//	func TestMain(m *testing.M) {
//	    _ = testutil.RegisterPlugin(manager)
//	    os.Exit(testutil.Main(m))
//	}
func Main(m *testing.M, components ...TestComponent) int {
	return runSession(context.Background(), m.Run, components...)
}

// runSession starts the session components, runs the tests and stops the
// components. A failed start or stop turns into exit code 1.
func runSession(ctx context.Context, run func() int, components ...TestComponent) int {
	mgr := NewManager()
	for _, c := range append(Plugins(), components...) {
		if err := mgr.Add(c); err != nil {
			logger.Error("Test session setup failed", logger.ErrorFields("setup", err))
			return 1
		}
	}

	if err := mgr.StartAll(ctx); err != nil {
		logger.Error("Test session setup failed", logger.ErrorFields("setup", err))
		return 1
	}

	code := run()

	if err := mgr.StopAll(ctx); err != nil {
		logger.Error("Test session teardown failed", logger.ErrorFields("teardown", err))
		if code == 0 {
			code = 1
		}
	}
	return code
}
