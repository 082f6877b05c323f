// Package observability wires OpenTelemetry tracing and metrics into fuisce
// applications.
//
// The database package records spans and instruments through the global
// providers, so nothing is exported until Init installs real ones:
//
//	shutdown, err := observability.Init(ctx, cfg.Telemetry)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "database.Initialize")
//	defer observability.EndSpan(span, err)
package observability
