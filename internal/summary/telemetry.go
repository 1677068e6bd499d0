package summary

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies this package's spans/instruments to
// whatever SDK the process wires up (spec.md's D1 "batch/LLM-call span +
// counter instrumentation"); asanadw leaves provider setup to the caller.
// cmd/asanadw installs no SDK or exporter, so it and the tests get the otel
// no-op default.
const instrumentationName = "github.com/adlio/asanadw/internal/summary"

func otelTracer() trace.Tracer { return otel.Tracer(instrumentationName) }
func otelMeter() metric.Meter  { return otel.Meter(instrumentationName) }
