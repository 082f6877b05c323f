package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/server"
)

type appKey struct{}

// FromContext returns the app whose context ctx belongs to, or nil.
func FromContext(ctx context.Context) *App {
	a, _ := ctx.Value(appKey{}).(*App)
	return a
}

// AppContext pushes an app context: the returned context carries the app, a
// new database session scope and the database interface. Call release when the
// work is done; it runs every teardown callback with err.
func (a *App) AppContext(ctx context.Context) (context.Context, func(err error)) {
	ctx = context.WithValue(ctx, appKey{}, a)
	if db := a.DB(); db != nil {
		ctx = db.Scope(ctx)
	}
	return ctx, func(err error) { a.teardown(ctx, err) }
}

// teardown runs the teardown callbacks in registration order. A panicking
// callback is logged and does not stop the others.
func (a *App) teardown(ctx context.Context, err error) {
	a.mu.RLock()
	fns := slices.Clone(a.teardowns)
	a.mu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.Logger.Error("Teardown callback panicked", map[string]interface{}{
						"panic": fmt.Sprint(r),
					})
				}
			}()
			fn(ctx, err)
		}()
	}
}

// appContextMiddleware wraps every request in an app context. The teardown
// error is the last handler error, or the panic value, which is re-raised for
// the recovery middleware. A handler error nothing was written for is sent
// as an error body.
func (a *App) appContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, release := a.AppContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			if r := recover(); r != nil {
				release(fmt.Errorf("panic: %v", r))
				panic(r)
			}
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			release(err)
		}()
		c.Next()

		if last := c.Errors.Last(); last != nil && !c.Writer.Written() {
			server.RespondError(c, database.FromDatabase(last.Err, "record"))
		}
	}
}
