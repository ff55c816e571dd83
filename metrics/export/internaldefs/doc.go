// Package internaldefs holds the metric names, help strings and bucket bounds shared
// by the Prometheus and OpenTelemetry exporters, so both expose identical series.
//
// Bucket bounds mirror the engine's in-process histogram (10µs to 5ms, then +Inf).
package internaldefs
