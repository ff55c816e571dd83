// Package otel reports goSession engine metrics through OpenTelemetry.
//
// Outcomes of one operation share an instrument and differ by the "outcome"
// attribute: gosession.decode carries success, each rejection kind and fatal.
// Latency is a gauge of cumulative bucket counts keyed by the "le" attribute, since
// the engine keeps fixed buckets rather than raw samples.
//
// A single callback reads [goSession.Engine.MetricsSnapshot] per collection. Callers
// own the MeterProvider.
package otel
