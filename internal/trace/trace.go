package trace

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "fx-analyzer"

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Config selects how spans are sampled and where they go.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Exporter       string  // "stdout" or "none"
	SampleRatio    float64 // fraction of root spans kept, 0..1
	Pretty         bool
}

// ConfigFromEnv reads LOG_TRACING_ENABLED, TRACE_EXPORTER, TRACE_SAMPLE_RATIO
// and TRACE_PRETTY.
func ConfigFromEnv(version string) Config {
	cfg := Config{
		Enabled:        getEnv("LOG_TRACING_ENABLED", "true") == "true",
		ServiceName:    instrumentationName,
		ServiceVersion: version,
		Exporter:       strings.ToLower(getEnv("TRACE_EXPORTER", "stdout")),
		SampleRatio:    1,
		Pretty:         getEnv("TRACE_PRETTY", "false") == "true",
	}
	if v, err := strconv.ParseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 64); err == nil && v >= 0 && v <= 1 {
		cfg.SampleRatio = v
	}
	return cfg
}

// Init installs the global tracer provider described by cfg.
func Init(cfg Config) error {
	enabled = cfg.Enabled
	if !enabled {
		return nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "", "stdout":
		opts := []stdouttrace.Option{}
		if cfg.Pretty {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			enabled = false
			return err
		}
		exporter = exp
	case "none":
	default:
		enabled = false
		return fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}

	return InitWithExporter(cfg, exporter)
}

// InitWithExporter is Init with a caller-supplied exporter. A nil exporter
// keeps span ids for log correlation without shipping spans anywhere.
func InitWithExporter(cfg Config, exporter sdktrace.SpanExporter) error {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tracerProvider)
	tracer = tracerProvider.Tracer(instrumentationName)
	enabled = true
	return nil
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.Shutdown(ctx)
	}
	return nil
}

// ForceFlush exports queued spans without stopping the provider.
func ForceFlush(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.ForceFlush(ctx)
	}
	return nil
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
