// Package tracing wires OpenTelemetry into the bridge: an OTLP trace
// exporter, an OTLP log exporter bridged into slog, and helpers to
// instrument inbound and outbound HTTP. Without an endpoint configured the
// component is inert.
package tracing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/hospicebridge/adtbridge/component"
)

var _ component.Lifecycle = (*Component)(nil)

type Config struct {
	// OTLPEndpoint is the collector host:port. Empty disables tracing.
	OTLPEndpoint   string `koanf:"otlpendpoint"`
	Insecure       bool   `koanf:"insecure"`
	ServiceName    string `koanf:"servicename"`
	ServiceVersion string
}

func DefaultConfig() Config {
	return Config{
		Insecure:    true,
		ServiceName: "adtbridge",
	}
}

type Component struct {
	config         Config
	tracerProvider *trace.TracerProvider
	loggerProvider *log.LoggerProvider
	shutdownFuncs  []func(context.Context) error
}

func New(config Config) *Component {
	if config.ServiceName == "" {
		config.ServiceName = "adtbridge"
	}
	return &Component{config: config}
}

func (c *Component) Start() error {
	if c.config.OTLPEndpoint == "" {
		slog.Info("No OTLP endpoint configured, tracing disabled")
		return nil
	}

	ctx := context.Background()

	// W3C Trace Context propagation, so trace IDs carried by interface
	// engines and FHIR servers survive the hop through the bridge.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(c.config.ServiceName),
			semconv.ServiceVersionKey.String(c.config.ServiceVersion),
		),
	)
	if err != nil {
		return err
	}
	if err := c.setupTraces(ctx, res); err != nil {
		return err
	}
	if err := c.setupLogs(ctx, res); err != nil {
		return err
	}

	slog.Info("OpenTelemetry initialized",
		slog.String("endpoint", c.config.OTLPEndpoint),
		slog.String("service", c.config.ServiceName))
	return nil
}

func (c *Component) setupTraces(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(c.config.OTLPEndpoint),
	}
	if c.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return err
	}
	c.shutdownFuncs = append(c.shutdownFuncs, exporter.Shutdown)

	c.tracerProvider = trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	c.shutdownFuncs = append(c.shutdownFuncs, c.tracerProvider.Shutdown)
	otel.SetTracerProvider(c.tracerProvider)
	return nil
}

// setupLogs bridges slog into OTLP so the collector sees application logs
// alongside the spans they belong to.
func (c *Component) setupLogs(ctx context.Context, res *resource.Resource) error {
	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(c.config.OTLPEndpoint),
	}
	if c.config.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return err
	}
	c.shutdownFuncs = append(c.shutdownFuncs, exporter.Shutdown)

	c.loggerProvider = log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter)),
		log.WithResource(res),
	)
	c.shutdownFuncs = append(c.shutdownFuncs, c.loggerProvider.Shutdown)

	slog.SetDefault(slog.New(otelslog.NewHandler(c.config.ServiceName,
		otelslog.WithLoggerProvider(c.loggerProvider),
	)))
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	if len(c.shutdownFuncs) == 0 {
		return nil
	}
	slog.Info("Shutting down OpenTelemetry")
	var errs error
	for _, fn := range c.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	c.shutdownFuncs = nil
	return errs
}

func (c *Component) RegisterHttpHandlers(_ *http.ServeMux, _ *http.ServeMux) {
	// Nothing to do
}

// Middleware instruments an inbound HTTP handler, one span per request.
func Middleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.server")
}

// WrapTransport instruments an outbound http.RoundTripper. A nil transport
// wraps http.DefaultTransport.
func WrapTransport(transport http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(transport)
}
