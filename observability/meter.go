package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/fuisce/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if interval, err := time.ParseDuration(cfg.MetricInterval); err == nil && interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval,
	))
	return mp, nil
}

// Meter returns the fuisce meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// DatabaseMetrics holds the instruments recorded by database interfaces.
// A nil *DatabaseMetrics records nothing.
type DatabaseMetrics struct {
	transactions        metric.Int64Counter
	transactionDuration metric.Float64Histogram
	scopesActive        metric.Int64UpDownCounter
	initializations     metric.Int64Counter
	errorTotal          metric.Int64Counter
}

// NewDatabaseMetrics creates the database instruments on meter.
func NewDatabaseMetrics(meter metric.Meter) (*DatabaseMetrics, error) {
	transactions, err := meter.Int64Counter("fuisce.db.transactions",
		metric.WithDescription("Transactions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fuisce.db.transactions counter: %w", err)
	}

	transactionDuration, err := meter.Float64Histogram("fuisce.db.transaction.duration",
		metric.WithDescription("Duration of transactions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fuisce.db.transaction.duration histogram: %w", err)
	}

	scopesActive, err := meter.Int64UpDownCounter("fuisce.db.scopes.active",
		metric.WithDescription("Number of open session scopes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fuisce.db.scopes.active gauge: %w", err)
	}

	initializations, err := meter.Int64Counter("fuisce.db.initializations",
		metric.WithDescription("Database initializations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fuisce.db.initializations counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("fuisce.db.errors",
		metric.WithDescription("Database errors by code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fuisce.db.errors counter: %w", err)
	}

	return &DatabaseMetrics{
		transactions:        transactions,
		transactionDuration: transactionDuration,
		scopesActive:        scopesActive,
		initializations:     initializations,
		errorTotal:          errorTotal,
	}, nil
}

// RecordTransaction records a finished transaction.
func (m *DatabaseMetrics) RecordTransaction(ctx context.Context, status string, nested bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.transactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("nested", nested),
	))
	m.transactionDuration.Record(ctx, duration.Seconds())
}

// ScopeOpened increments the open scope count.
func (m *DatabaseMetrics) ScopeOpened(ctx context.Context) {
	if m != nil {
		m.scopesActive.Add(ctx, 1)
	}
}

// ScopeClosed decrements the open scope count.
func (m *DatabaseMetrics) ScopeClosed(ctx context.Context) {
	if m != nil {
		m.scopesActive.Add(ctx, -1)
	}
}

// RecordInitialize records a database initialization.
func (m *DatabaseMetrics) RecordInitialize(ctx context.Context, status string) {
	if m != nil {
		m.initializations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

// RecordError records a translated database error.
func (m *DatabaseMetrics) RecordError(ctx context.Context, code string) {
	if m != nil {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	}
}
