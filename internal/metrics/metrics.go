package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter.
type MetricID uint16

const (
	MetricEncodeSuccess MetricID = iota
	MetricEncodeFatal
	MetricEncodeTooLarge
	MetricDecodeSuccess
	MetricDecodeInvalidEncoding
	MetricDecodeAuthenticationFailed
	MetricDecodeExpired
	MetricDecodeMalformedPayload
	MetricDecodeFatal
	MetricDecodeRetiredKey
	MetricSessionRenewed
	MetricKeyRotated
	MetricKeyRotationRejected
	MetricEncodeLatency
	MetricDecodeLatency
	MetricIDCount
)

var metricNames = [MetricIDCount]string{
	MetricEncodeSuccess:              "encode_success",
	MetricEncodeFatal:                "encode_fatal",
	MetricEncodeTooLarge:             "encode_too_large",
	MetricDecodeSuccess:              "decode_success",
	MetricDecodeInvalidEncoding:      "decode_invalid_encoding",
	MetricDecodeAuthenticationFailed: "decode_authentication_failed",
	MetricDecodeExpired:              "decode_expired",
	MetricDecodeMalformedPayload:     "decode_malformed_payload",
	MetricDecodeFatal:                "decode_fatal",
	MetricDecodeRetiredKey:           "decode_retired_key",
	MetricSessionRenewed:             "session_renewed",
	MetricKeyRotated:                 "key_rotated",
	MetricKeyRotationRejected:        "key_rotation_rejected",
	MetricEncodeLatency:              "encode_latency",
	MetricDecodeLatency:              "decode_latency",
}

// Name returns the snake_case name of id, or "" if id is out of range.
func (id MetricID) Name() string {
	if id >= MetricIDCount {
		return ""
	}
	return metricNames[id]
}

// IsLatency reports whether id carries a histogram.
func (id MetricID) IsLatency() bool {
	return id == MetricEncodeLatency || id == MetricDecodeLatency
}

const (
	HistogramBucketCount = 8
	cacheLineSize        = 64
)

// HistogramBounds are the inclusive upper bounds of the first seven buckets; the last
// bucket is unbounded. Codec operations run in microseconds, so the scale starts there.
var HistogramBounds = [HistogramBucketCount - 1]time.Duration{
	10 * time.Microsecond,
	25 * time.Microsecond,
	50 * time.Microsecond,
	100 * time.Microsecond,
	250 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
}

type histogram struct {
	buckets [HistogramBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds lock-free counters and latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of every counter and enabled histogram.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for a latency metric.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !id.IsLatency() {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if id.IsLatency() {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricEncodeLatency, MetricDecodeLatency} {
			buckets := make([]uint64, HistogramBucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return HistogramBucketCount - 1
}
