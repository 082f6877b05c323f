package database

import (
	"context"
	"sync"
)

// Host is the application side of an interface: where its database lives,
// whether it runs under test, and where request teardown hooks go.
type Host interface {
	// Testing reports whether the host is a test application.
	Testing() bool
	// DatabasePath is the SQLite file the host uses.
	DatabasePath() string
	// InterfaceOptions configure the interface built for a testing host.
	InterfaceOptions() []Option
	// DatabasePreinitialized reports that the database file was copied from
	// an initialized template and must not be initialized again.
	DatabasePreinitialized() bool
	// SetDB and DB hold the interface selected for the host.
	SetDB(db *Interface)
	DB() *Interface
	// TeardownAppContext registers fn to run after every request.
	TeardownAppContext(fn func(ctx context.Context, err error))
}

var (
	defaultMu        sync.RWMutex
	defaultInterface *Interface
)

// CreateDefaultInterface creates the interface used by every non-testing
// host and returns it.
func CreateDefaultInterface(opts ...Option) *Interface {
	iface := New(opts...)
	SetDefaultInterface(iface)
	return iface
}

// DefaultInterface returns the default interface, or nil.
func DefaultInterface() *Interface {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultInterface
}

// SetDefaultInterface replaces the default interface.
func SetDefaultInterface(iface *Interface) {
	defaultMu.Lock()
	defaultInterface = iface
	defaultMu.Unlock()
}

// ResetDefaultInterface clears the default interface.
func ResetDefaultInterface() {
	SetDefaultInterface(nil)
}

// InterfaceSelector wraps an app initialization function, usually called
// from the app factory, so that the host gets the right interface:
//
//   - a non-testing host uses the default interface, which must exist;
//   - a testing host gets a new interface built from its InterfaceOptions.
//
// The engine is set up on the host's DatabasePath before init runs, and
// CloseSession is registered as a request teardown afterwards. A testing
// host's database is then initialized unless it is pre-initialized; other
// databases are initialized through the CLI.
func InterfaceSelector(init func(ctx context.Context, host Host) error) func(ctx context.Context, host Host) error {
	return func(ctx context.Context, host Host) error {
		var iface *Interface
		if !host.Testing() {
			iface = DefaultInterface()
			if iface == nil {
				return ErrNoDefaultInterface
			}
		} else {
			iface = New(host.InterfaceOptions()...)
		}
		host.SetDB(iface)

		if err := iface.SetupEngine(ctx, host.DatabasePath()); err != nil {
			return err
		}
		if init != nil {
			if err := init(ctx, host); err != nil {
				return err
			}
		}
		host.TeardownAppContext(iface.CloseSession)

		if host.Testing() && !host.DatabasePreinitialized() {
			return iface.Initialize(ctx, host)
		}
		return nil
	}
}
