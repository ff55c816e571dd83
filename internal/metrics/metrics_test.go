package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersAndSnapshot(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Inc(MetricDecodeSuccess)
			}
		}()
	}
	wg.Wait()

	m.Inc(MetricDecodeExpired)
	m.Observe(MetricDecodeLatency, 5*time.Microsecond)
	m.Observe(MetricDecodeLatency, time.Second)
	m.Observe(MetricDecodeSuccess, time.Second)

	snap := m.Snapshot()
	if snap.Counters[MetricDecodeSuccess] != 800 {
		t.Fatalf("expected 800, got %d", snap.Counters[MetricDecodeSuccess])
	}
	if snap.Counters[MetricDecodeExpired] != 1 {
		t.Fatalf("expected 1 expired, got %d", snap.Counters[MetricDecodeExpired])
	}
	if _, ok := snap.Counters[MetricDecodeLatency]; ok {
		t.Fatal("latency ids must not appear as counters")
	}
	h := snap.Histograms[MetricDecodeLatency]
	if len(h) != HistogramBucketCount || h[0] != 1 || h[HistogramBucketCount-1] != 1 {
		t.Fatalf("unexpected histogram %v", h)
	}
}

func TestDisabledMetrics(t *testing.T) {
	m := New(Config{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(MetricEncodeSuccess)
	m.Observe(MetricEncodeLatency, time.Microsecond)
	if m.Value(MetricEncodeSuccess) != 0 || m.LatencyEnabled() {
		t.Fatal("disabled metrics must not record")
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricEncodeSuccess)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{10 * time.Microsecond, 0},
		{11 * time.Microsecond, 1},
		{100 * time.Microsecond, 3},
		{time.Millisecond, 5},
		{5 * time.Millisecond, 6},
		{time.Hour, 7},
	}
	for _, tc := range tests {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestMetricNames(t *testing.T) {
	seen := map[string]bool{}
	for id := MetricID(0); id < MetricIDCount; id++ {
		name := id.Name()
		if name == "" || seen[name] {
			t.Fatalf("metric %d has empty or duplicate name %q", id, name)
		}
		seen[name] = true
	}
	if MetricIDCount.Name() != "" {
		t.Fatal("out of range id must have empty name")
	}
}
