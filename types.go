package goSession

import (
	"io"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// AuditSinkFunc adapts a function to an [AuditSink].
type AuditSinkFunc = internalaudit.SinkFunc

// Audit event types.
const (
	AuditSessionRejected = internalaudit.EventSessionRejected
	AuditSessionFatal    = internalaudit.EventSessionFatal
	AuditKeyRotated      = internalaudit.EventKeyRotated
	AuditRotationDenied  = internalaudit.EventRotationDenied
)

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram in the in-process metrics
// system.
type MetricID = internalmetrics.MetricID

const (
	MetricEncodeSuccess              = internalmetrics.MetricEncodeSuccess
	MetricEncodeFatal                = internalmetrics.MetricEncodeFatal
	MetricEncodeTooLarge             = internalmetrics.MetricEncodeTooLarge
	MetricDecodeSuccess              = internalmetrics.MetricDecodeSuccess
	MetricDecodeInvalidEncoding      = internalmetrics.MetricDecodeInvalidEncoding
	MetricDecodeAuthenticationFailed = internalmetrics.MetricDecodeAuthenticationFailed
	MetricDecodeExpired              = internalmetrics.MetricDecodeExpired
	MetricDecodeMalformedPayload     = internalmetrics.MetricDecodeMalformedPayload
	MetricDecodeFatal                = internalmetrics.MetricDecodeFatal
	MetricDecodeRetiredKey           = internalmetrics.MetricDecodeRetiredKey
	MetricSessionRenewed             = internalmetrics.MetricSessionRenewed
	MetricKeyRotated                 = internalmetrics.MetricKeyRotated
	MetricKeyRotationRejected        = internalmetrics.MetricKeyRotationRejected
	MetricEncodeLatency              = internalmetrics.MetricEncodeLatency
	MetricDecodeLatency              = internalmetrics.MetricDecodeLatency

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics is the engine's lock-free metrics store.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] store from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}

func rejectionMetric(kind RejectionKind) MetricID {
	switch kind {
	case InvalidEncoding:
		return MetricDecodeInvalidEncoding
	case AuthenticationFailed:
		return MetricDecodeAuthenticationFailed
	case Expired:
		return MetricDecodeExpired
	default:
		return MetricDecodeMalformedPayload
	}
}
