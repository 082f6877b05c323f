package database

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/kbukum/fuisce/observability"
)

type (
	interfaceKey struct{}
	scopeKey     struct{ iface *Interface }
	txKey        struct{ iface *Interface }
)

// scope is a session shared by everything running under one context, such
// as a single request. It is recreated lazily after CloseSession or when the
// engine is replaced.
type scope struct {
	mu      sync.Mutex
	engine  *gorm.DB
	session *gorm.DB
	open    bool
}

var dbMetrics = sync.OnceValue(func() *observability.DatabaseMetrics {
	m, err := observability.NewDatabaseMetrics(observability.Meter())
	if err != nil {
		return nil
	}
	return m
})

// WithInterface returns a context carrying iface for FromContext and Transact.
func WithInterface(ctx context.Context, iface *Interface) context.Context {
	return context.WithValue(ctx, interfaceKey{}, iface)
}

// FromContext returns the interface carried by ctx, or nil.
func FromContext(ctx context.Context) *Interface {
	iface, _ := ctx.Value(interfaceKey{}).(*Interface)
	return iface
}

// Scope attaches a new session scope and the interface to ctx. Every call to
// Session with the returned context, or a context derived from it, shares one
// session until CloseSession.
func (i *Interface) Scope(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, scopeKey{i}, &scope{})
	return WithInterface(ctx, i)
}

// Session returns the current session: the transaction opened by an
// enclosing Transaction, else the session of the scope carried by ctx, else a
// fresh session. It returns nil before SetupEngine.
func (i *Interface) Session(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{i}).(*gorm.DB); ok {
		return tx
	}
	engine := i.Engine()
	if engine == nil {
		return nil
	}
	sc, ok := ctx.Value(scopeKey{i}).(*scope)
	if !ok {
		return engine.WithContext(ctx)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.open || sc.engine != engine {
		if !sc.open {
			dbMetrics().ScopeOpened(ctx)
		}
		sc.engine = engine
		sc.session = engine.Session(&gorm.Session{NewDB: true, Context: ctx})
		sc.open = true
	}
	return sc.session.WithContext(ctx)
}

// CloseSession closes the session of the scope carried by ctx, if it is open.
// The next Session call under the same scope starts a new one. err is the
// error the request ended with, if any; it is only logged.
func (i *Interface) CloseSession(ctx context.Context, err error) {
	sc, ok := ctx.Value(scopeKey{i}).(*scope)
	if !ok {
		return
	}
	sc.mu.Lock()
	wasOpen := sc.open
	sc.open = false
	sc.session = nil
	sc.engine = nil
	sc.mu.Unlock()

	if !wasOpen {
		return
	}
	dbMetrics().ScopeClosed(ctx)
	if err != nil {
		i.log.Debug("Session closed after error", map[string]interface{}{"error": err.Error()})
	}
}

// Transaction runs fn inside a transaction on the current session. It commits
// when fn returns nil and rolls back when fn returns an error or panics; a
// panic is re-raised after the rollback. Within fn, Session(ctx) returns tx.
// Nested calls run in savepoints.
func (i *Interface) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) (err error) {
	session := i.Session(ctx)
	if session == nil {
		return ErrNotSetUp
	}
	_, nested := ctx.Value(txKey{i}).(*gorm.DB)

	ctx, span := observability.StartSpan(ctx, "database.Transaction")
	span.SetAttributes(
		attribute.String(observability.AttrDBPath, i.Path()),
		attribute.Bool(observability.AttrDBNested, nested),
	)
	start := time.Now()
	panicked := true
	defer func() {
		status := "commit"
		switch {
		case panicked:
			status = "panic"
		case err != nil:
			status = "rollback"
		}
		dbMetrics().RecordTransaction(ctx, status, nested, time.Since(start))
		observability.EndSpan(span, err)
	}()

	err = session.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{i}, tx), tx)
	})
	panicked = false
	return err
}

// Transact runs fn in a transaction on the interface carried by ctx.
func Transact(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	iface := FromContext(ctx)
	if iface == nil {
		return ErrNoInterface
	}
	return iface.Transaction(ctx, fn)
}
