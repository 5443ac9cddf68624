package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/hospicebridge/adtbridge/component"
	"github.com/hospicebridge/adtbridge/component/forward"
	libHTTP "github.com/hospicebridge/adtbridge/component/http"
	"github.com/hospicebridge/adtbridge/component/ingest"
	"github.com/hospicebridge/adtbridge/component/mllp"
	"github.com/hospicebridge/adtbridge/component/relay"
	"github.com/hospicebridge/adtbridge/component/status"
	"github.com/hospicebridge/adtbridge/component/tracing"
	"github.com/hospicebridge/adtbridge/lib/logging"
	"github.com/hospicebridge/adtbridge/pipeline"
)

// Start wires the configured components together and blocks until ctx is
// cancelled.
func Start(ctx context.Context, config Config) error {
	publicMux := http.NewServeMux()
	internalMux := http.NewServeMux()

	// Tracing starts before the component loop so logs emitted from other
	// component constructors are already captured via OTLP.
	config.Tracing.ServiceVersion = status.Version()
	tracingComponent := tracing.New(config.Tracing)
	if err := tracingComponent.Start(); err != nil {
		return errors.Wrap(err, "failed to start tracing component")
	}

	transformer := pipeline.New(config.Pipeline)

	// The forward component, when configured, is the delivery sink for every
	// ingestion path.
	var sink ingest.Sink
	var mllpSink mllp.Sink
	var forwardComponent *forward.Component
	if config.Forward.Enabled() {
		var err error
		forwardComponent, err = forward.New(config.Forward)
		if err != nil {
			return errors.Wrap(err, "failed to create forward component")
		}
		sink = forwardComponent
		mllpSink = forwardComponent
		slog.InfoContext(ctx, "Forwarding enabled", logging.FHIRServer(config.Forward.FHIRBaseURL))
	} else {
		slog.InfoContext(ctx, "Forwarding is disabled")
	}

	httpComponent := libHTTP.New(config.HTTP, publicMux, internalMux)
	if config.Tracing.OTLPEndpoint != "" {
		httpComponent.Handler = tracing.Middleware
	}

	components := []component.Lifecycle{
		ingest.New(transformer, sink),
		status.New(),
		httpComponent,
	}
	if forwardComponent != nil {
		components = append(components, forwardComponent)
	}

	if config.MLLP.Enabled() {
		components = append(components, mllp.New(config.MLLP, transformer, mllpSink))
	} else {
		slog.InfoContext(ctx, "MLLP listener is disabled")
	}

	if config.Relay.Enabled() {
		components = append(components, relay.New(config.Relay, transformer))
	} else {
		slog.InfoContext(ctx, "AMQP relay is disabled")
	}

	for _, cmp := range components {
		cmp.RegisterHttpHandlers(publicMux, internalMux)
	}

	for _, cmp := range components {
		slog.DebugContext(ctx, "Starting component", logging.Component(cmp))
		if err := cmp.Start(); err != nil {
			return errors.Wrapf(err, "failed to start component: %T", cmp)
		}
	}

	slog.InfoContext(ctx, "System started, waiting for shutdown...")
	<-ctx.Done()

	slog.DebugContext(ctx, "Shutdown signalled, stopping components...")
	for _, cmp := range components {
		if err := cmp.Stop(ctx); err != nil {
			slog.ErrorContext(ctx, "Error stopping component", logging.Component(cmp), logging.Error(err))
		}
	}
	slog.InfoContext(ctx, "Goodbye!")

	// Tracing stops last so shutdown logs still reach the collector.
	if err := tracingComponent.Stop(ctx); err != nil {
		// The slog handler may already be shut down at this point.
		fmt.Printf("Error stopping tracing component: %v\n", err)
	}
	return nil
}
