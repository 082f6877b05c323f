// Package server provides the HTTP server of a fuisce app: Gin behind an h2c
// handler, with net/http middleware wrapping every mount.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: turns panics into 500 responses and logs the stack
//   - RequestID: reads or generates X-Request-Id
//   - RequestLogger: one line per request, at error for 5xx and warn for 4xx
//
// # Responses
//
// Respond and RespondList wrap data in an envelope; RespondError renders any
// error as {"error": {"code", "message", "retryable", "details"}} with the status of its
// code.
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health, 503 when a component is unhealthy
//   - /version: build version information
package server
