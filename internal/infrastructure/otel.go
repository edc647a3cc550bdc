package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

const (
	ServiceName = "healthcare-analytics"
	MeterName   = "github.com/ImamSharif/Healthcare-analytics"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableMetrics  bool
	EnableTracing  bool
	StdoutTraces   bool
	SampleRatio    float64
}

// OTelConfigFrom maps the telemetry section of the application config.
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	name := cfg.ServiceName
	if name == "" {
		name = ServiceName
	}
	return &OTelConfig{
		ServiceName:    name,
		ServiceVersion: contracts.Version,
		Environment:    env,
		EnableMetrics:  cfg.MetricsEnabled,
		EnableTracing:  cfg.TracingEnabled,
		StdoutTraces:   cfg.StdoutTraces,
		SampleRatio:    cfg.TraceSampleRatio,
	}
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *BusinessMetrics
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics. Disabled signals fall back
// to no-op implementations so callers never check for nil.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = OTelConfigFrom(config.Default().Telemetry)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := createResource(cfg)
	providers := &OTelProviders{
		Tracer:         tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:          noop.NewMeterProvider().Meter(MeterName),
		PrometheusHTTP: http.NotFoundHandler(),
		Logger:         logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	metrics, err := CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	providers.Metrics = metrics

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete")
	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing creates the tracer provider. Spans are always created
// so trace ids reach the logs; they are exported only with StdoutTraces.
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	if cfg.StdoutTraces {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.Bool("stdout_exporter", cfg.StdoutTraces),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// initializeMetrics wires a Prometheus exporter on a private registry that
// also carries the Go runtime and process collectors.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// BusinessMetrics holds all application-specific metrics. A nil
// *BusinessMetrics records nothing.
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Query metrics
	QueriesTotal      metric.Int64Counter
	EmptyResultsTotal metric.Int64Counter

	// Dataset metrics
	DatasetLoadDuration metric.Float64Histogram
	DatasetLoadErrors   metric.Int64Counter
	DatasetCacheHits    metric.Int64Counter
	DatasetRecords      metric.Int64UpDownCounter
	DatasetReloads      metric.Int64Counter

	mu      sync.Mutex
	records int64
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of active HTTP requests")); err != nil {
		return nil, err
	}

	if m.QueriesTotal, err = meter.Int64Counter("dashboard_queries_total",
		metric.WithDescription("Total number of dashboard queries")); err != nil {
		return nil, err
	}
	if m.EmptyResultsTotal, err = meter.Int64Counter("dashboard_empty_results_total",
		metric.WithDescription("Dashboard queries whose selection matched no records")); err != nil {
		return nil, err
	}

	if m.DatasetLoadDuration, err = meter.Float64Histogram("dataset_load_duration_seconds",
		metric.WithDescription("Time spent reading a dataset file"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.DatasetLoadErrors, err = meter.Int64Counter("dataset_load_errors_total",
		metric.WithDescription("Dataset files that failed to load")); err != nil {
		return nil, err
	}
	if m.DatasetCacheHits, err = meter.Int64Counter("dataset_cache_hits_total",
		metric.WithDescription("Dataset reads served from the frame cache")); err != nil {
		return nil, err
	}
	if m.DatasetRecords, err = meter.Int64UpDownCounter("dataset_records",
		metric.WithDescription("Records in the loaded primary dataset")); err != nil {
		return nil, err
	}
	if m.DatasetReloads, err = meter.Int64Counter("dataset_reloads_total",
		metric.WithDescription("Explicit dataset reloads")); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveLoad records how long a dataset file took to read.
func (m *BusinessMetrics) ObserveLoad(ctx context.Context, path string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.DatasetLoadErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("file", path)))
	}
	m.DatasetLoadDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("file", path),
		attribute.String("status", status),
	))
}

// ObserveCacheHit counts a read served from the frame cache.
func (m *BusinessMetrics) ObserveCacheHit(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.DatasetCacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("file", path)))
}

// RecordQuery counts a dashboard query and, separately, queries that
// selected nothing.
func (m *BusinessMetrics) RecordQuery(ctx context.Context, query string, status domain.ResultStatus) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("query", query))
	m.QueriesTotal.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("status", string(status))))
	if status == domain.StatusEmpty {
		m.EmptyResultsTotal.Add(ctx, 1, attrs)
	}
}

// SetDatasetRecords moves the dataset_records gauge to n.
func (m *BusinessMetrics) SetDatasetRecords(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	delta := int64(n) - m.records
	m.records = int64(n)
	m.mu.Unlock()

	if delta != 0 {
		m.DatasetRecords.Add(ctx, delta)
	}
}

// RecordReload counts an explicit reload.
func (m *BusinessMetrics) RecordReload(ctx context.Context, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.DatasetReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// StartSpan starts an internal span on the global tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
