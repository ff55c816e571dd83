// Package prometheus exports goSession engine metrics to Prometheus.
//
// Two forms are offered. [Collector] implements prometheus.Collector from
// client_golang and is registered like any other collector. [PrometheusExporter]
// renders the text exposition format directly for hosts without a registry.
//
// Counters are named gosession_*_total. The encode and decode latency histograms are
// gosession_encode_latency_seconds and gosession_decode_latency_seconds and only appear
// when latency histograms are enabled on the engine.
package prometheus
