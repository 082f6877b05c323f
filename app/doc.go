// Package app assembles a fuisce application: configuration, logger, HTTP
// server and the database interface selected for it.
//
// Applications are built by a Factory, so tests and the CLI can create as
// many instances as they need:
//
//	func NewApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
//	    a, err := app.New(cfg)
//	    if err != nil {
//	        return nil, err
//	    }
//	    err = a.SelectDatabase(ctx, func(ctx context.Context, host database.Host) error {
//	        a.Engine().GET("/posts", listPosts)
//	        return nil
//	    })
//	    return a, err
//	}
//
// Every request runs in an app context: its request context carries the app,
// the database interface and a session scope, and the teardown callbacks run
// with the request's last error once the handler returns.
package app
