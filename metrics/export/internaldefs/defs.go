package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricEncodeSuccess, Name: "gosession_encode_success_total", Help: "Sessions encoded into cookie values."},
	{ID: goSession.MetricEncodeFatal, Name: "gosession_encode_fatal_total", Help: "Encodes that failed on key material or the random source."},
	{ID: goSession.MetricEncodeTooLarge, Name: "gosession_encode_too_large_total", Help: "Encodes refused because the cookie exceeded the size limit."},
	{ID: goSession.MetricDecodeSuccess, Name: "gosession_decode_success_total", Help: "Cookies accepted."},
	{ID: goSession.MetricDecodeInvalidEncoding, Name: "gosession_decode_invalid_encoding_total", Help: "Cookies rejected for malformed text structure."},
	{ID: goSession.MetricDecodeAuthenticationFailed, Name: "gosession_decode_authentication_failed_total", Help: "Cookies no candidate key authenticated."},
	{ID: goSession.MetricDecodeExpired, Name: "gosession_decode_expired_total", Help: "Authentic cookies past their expiry."},
	{ID: goSession.MetricDecodeMalformedPayload, Name: "gosession_decode_malformed_payload_total", Help: "Authentic cookies whose payload did not deserialize."},
	{ID: goSession.MetricDecodeFatal, Name: "gosession_decode_fatal_total", Help: "Decodes that failed without a usable key ring."},
	{ID: goSession.MetricDecodeRetiredKey, Name: "gosession_decode_retired_key_total", Help: "Cookies accepted under a key that is no longer active."},
	{ID: goSession.MetricSessionRenewed, Name: "gosession_session_renewed_total", Help: "Sessions re-issued by sliding expiration."},
	{ID: goSession.MetricKeyRotated, Name: "gosession_key_rotated_total", Help: "Key ring rotations applied."},
	{ID: goSession.MetricKeyRotationRejected, Name: "gosession_key_rotation_rejected_total", Help: "Key ring rotations refused."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricEncodeLatency, Name: "gosession_encode_latency_seconds", Help: "Encode latency histogram."},
	{ID: goSession.MetricDecodeLatency, Name: "gosession_decode_latency_seconds", Help: "Decode latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramBounds are the bucket upper bounds in seconds, as exposition labels.
var HistogramBounds = []string{
	"1e-05",
	"2.5e-05",
	"5e-05",
	"0.0001",
	"0.00025",
	"0.001",
	"0.005",
	"+Inf",
}

// HistogramBoundSeconds are the finite bucket upper bounds in seconds.
var HistogramBoundSeconds = []float64{
	0.00001,
	0.000025,
	0.00005,
	0.0001,
	0.00025,
	0.001,
	0.005,
}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"10us",
	"25us",
	"50us",
	"100us",
	"250us",
	"1ms",
	"5ms",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
