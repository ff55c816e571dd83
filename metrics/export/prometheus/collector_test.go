package prometheus

import (
	"testing"

	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRegistersAndGathers(t *testing.T) {
	reg := promclient.NewPedanticRegistry()
	if err := reg.Register(NewCollectorFromSource(sampleSource())); err != nil {
		t.Fatalf("Register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	byName := make(map[string]float64)
	var histogramCount uint64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				byName[mf.GetName()] = c.GetValue()
			}
			if h := m.GetHistogram(); h != nil && mf.GetName() == "gosession_decode_latency_seconds" {
				histogramCount = h.GetSampleCount()
			}
		}
	}

	if byName["gosession_decode_success_total"] != 7 {
		t.Fatalf("expected decode success 7, got %v", byName["gosession_decode_success_total"])
	}
	if byName[internaldefs.AuditDroppedName] != 2 {
		t.Fatalf("expected audit dropped 2, got %v", byName[internaldefs.AuditDroppedName])
	}
	if histogramCount != 36 {
		t.Fatalf("expected 36 latency samples, got %d", histogramCount)
	}
}

func TestCollectorCount(t *testing.T) {
	c := NewCollectorFromSource(sampleSource())

	// every counter, the one populated histogram, and audit dropped
	want := len(internaldefs.CounterDefs) + 1 + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d metrics, got %d", want, got)
	}
}

func TestCollectorNilSource(t *testing.T) {
	c := NewCollectorFromSource(nil)
	if got := testutil.CollectAndCount(c); got != 0 {
		t.Fatalf("expected no metrics without a source, got %d", got)
	}
}
