// Package observability wires OpenTelemetry trace export into Genkit's
// TracerProvider.
//
// Traces are exported over OTLP HTTP to a local collector or agent.
// The collector handles authentication, buffering, and forwarding to
// whatever backend is configured, so the service itself never needs
// backend credentials.
//
// Export is opt-in: an empty endpoint disables it entirely and Setup
// returns a no-op shutdown.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName is the service name reported on exported spans.
const ServiceName = "lectern"

const shutdownTimeout = 5 * time.Second

// Setup registers an OTLP HTTP exporter with Genkit's TracerProvider.
// Must run before genkit.Init so flows start with the processor in
// place. Returns a shutdown function that flushes pending spans; it is
// a no-op when endpoint is empty or the exporter cannot be created.
func Setup(ctx context.Context, endpoint string, logger *slog.Logger) func() {
	if endpoint == "" {
		return func() {}
	}

	// Genkit's TracerProvider reads the service name from the
	// environment. Setup runs once during startup, before any
	// goroutines are spawned, so Setenv is safe here.
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled", "endpoint", endpoint)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
