// internal/tracing/tracing.go
package tracing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"pixelverk/internal/logger"
)

// Config selects where spans go
type Config struct {
	Exporter    string // "", "none" or "stdout"
	ServiceName string
	Output      io.Writer // stdout exporter destination, os.Stdout when nil
}

// Setup installs the global tracer provider. The returned function flushes
// and stops it. With no exporter configured the otel no-op provider stays in
// place.
func Setup(cfg Config) (func(context.Context) error, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "", "none":
		logger.LogInfo("Tracing disabled")
		return func(context.Context) error { return nil }, nil
	case "stdout":
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		otel.SetTracerProvider(tp)
		logger.LogInfo("Tracing enabled with stdout exporter")
		return tp.Shutdown, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}

// Middleware instruments every request with a server span.
func Middleware(h http.Handler, serviceName string) http.Handler {
	return otelhttp.NewHandler(h, serviceName)
}
