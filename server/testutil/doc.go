// Package testutil provides testing utilities for the server package.
//
// Component runs a server behind httptest.Server and implements both
// component.Component and testutil.TestComponent:
//
//	srv := testutil.NewComponent()
//	fuiscetest.T(t).Setup(srv)
//
//	srv.GinEngine().GET("/hello", func(c *gin.Context) {
//	    c.String(200, "world")
//	})
//	resp, err := srv.Get(ctx, "/hello")
//
// Serve wraps a server that already exists, such as an app's.
package testutil
