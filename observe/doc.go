// Package observe provides logging, tracing and metrics for the memory
// server and its database layer.
//
// The logger writes one JSON object per line and redacts credential-bearing
// keys. Tracing and metrics are OpenTelemetry; exporters are selected by
// name through the exporters subpackage. Every component has a no-op form so
// libraries can default to silence.
package observe
