package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("otel: nil meter")
	// ErrNilSource is returned when no engine or source is supplied.
	ErrNilSource = errors.New("otel: nil metrics source")
)

const (
	// OutcomeKey is the attribute separating outcomes of one operation.
	OutcomeKey = attribute.Key("outcome")
	// BoundKey carries the upper bound, in seconds, of a cumulative latency bucket.
	BoundKey = attribute.Key("le")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type outcomeSpec struct {
	id   goSession.MetricID
	name string // empty for single-outcome instruments
}

type counterSpec struct {
	name     string
	unit     string
	help     string
	outcomes []outcomeSpec
}

var counterSpecs = []counterSpec{
	{
		name: "gosession.encode",
		unit: "{cookie}",
		help: "Session encodes by outcome.",
		outcomes: []outcomeSpec{
			{goSession.MetricEncodeSuccess, "success"},
			{goSession.MetricEncodeTooLarge, "too_large"},
			{goSession.MetricEncodeFatal, "fatal"},
		},
	},
	{
		name: "gosession.decode",
		unit: "{cookie}",
		help: "Cookie decodes by outcome. Every outcome other than success and fatal is a rejection.",
		outcomes: []outcomeSpec{
			{goSession.MetricDecodeSuccess, "success"},
			{goSession.MetricDecodeInvalidEncoding, "invalid_encoding"},
			{goSession.MetricDecodeAuthenticationFailed, "authentication_failed"},
			{goSession.MetricDecodeExpired, "expired"},
			{goSession.MetricDecodeMalformedPayload, "malformed_payload"},
			{goSession.MetricDecodeFatal, "fatal"},
		},
	},
	{
		name:     "gosession.decode.retired_key",
		unit:     "{cookie}",
		help:     "Cookies accepted under a key that is no longer active.",
		outcomes: []outcomeSpec{{goSession.MetricDecodeRetiredKey, ""}},
	},
	{
		name:     "gosession.session.renewed",
		unit:     "{session}",
		help:     "Sessions re-issued by sliding expiration.",
		outcomes: []outcomeSpec{{goSession.MetricSessionRenewed, ""}},
	},
	{
		name: "gosession.key.rotation",
		unit: "{rotation}",
		help: "Key ring rotations by outcome.",
		outcomes: []outcomeSpec{
			{goSession.MetricKeyRotated, "applied"},
			{goSession.MetricKeyRotationRejected, "rejected"},
		},
	},
}

var latencySpecs = []struct {
	id   goSession.MetricID
	name string
}{
	{goSession.MetricEncodeLatency, "gosession.encode.duration"},
	{goSession.MetricDecodeLatency, "gosession.decode.duration"},
}

type observedOutcome struct {
	id   goSession.MetricID
	opts []metric.ObserveOption
}

type observedCounter struct {
	instrument metric.Int64ObservableCounter
	outcomes   []observedOutcome
}

type observedLatency struct {
	id         goSession.MetricID
	instrument metric.Int64ObservableGauge
	bounds     [][]metric.ObserveOption
}

// Option configures an Exporter.
type Option func(*options)

type options struct {
	attrs []attribute.KeyValue
}

// WithAttributes adds attrs to every observation, for example to tell engines in one
// process apart.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// Exporter reports engine metrics on an OpenTelemetry meter. Each collection takes one
// snapshot of the source and observes every instrument from it.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	latencies    []observedLatency
	auditDropped metric.Int64ObservableCounter
	baseOpts     []metric.ObserveOption
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *goSession.Engine, opts ...Option) (*Exporter, error) {
	if engine == nil {
		if meter == nil {
			return nil, ErrNilMeter
		}
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine, opts...)
}

// NewExporterFromSource is NewExporter for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &Exporter{
		source:   source,
		baseOpts: observeWith(o.attrs),
	}
	var observables []metric.Observable

	for _, spec := range counterSpecs {
		ins, err := meter.Int64ObservableCounter(spec.name,
			metric.WithDescription(spec.help),
			metric.WithUnit(spec.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", spec.name, err)
		}
		c := observedCounter{instrument: ins}
		for _, out := range spec.outcomes {
			attrs := o.attrs
			if out.name != "" {
				attrs = append(append([]attribute.KeyValue(nil), o.attrs...), OutcomeKey.String(out.name))
			}
			c.outcomes = append(c.outcomes, observedOutcome{id: out.id, opts: observeWith(attrs)})
		}
		e.counters = append(e.counters, c)
		observables = append(observables, ins)
	}

	for _, spec := range latencySpecs {
		ins, err := meter.Int64ObservableGauge(spec.name,
			metric.WithDescription("Cumulative count of operations at or under the le bound, in seconds."),
			metric.WithUnit("{operation}"),
		)
		if err != nil {
			return nil, fmt.Errorf("otel: gauge %s: %w", spec.name, err)
		}
		l := observedLatency{id: spec.id, instrument: ins}
		for _, bound := range internaldefs.HistogramBounds {
			attrs := append(append([]attribute.KeyValue(nil), o.attrs...), BoundKey.String(bound))
			l.bounds = append(l.bounds, observeWith(attrs))
		}
		e.latencies = append(e.latencies, l)
		observables = append(observables, ins)
	}

	dropped, err := meter.Int64ObservableCounter("gosession.audit.dropped",
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("otel: counter gosession.audit.dropped: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		for _, out := range c.outcomes {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[out.id]), out.opts...)
		}
	}
	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, opts := range l.bounds {
			observer.ObserveInt64(l.instrument, int64(cumulative[i]), opts...)
		}
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()), e.baseOpts...)
	return nil
}

// Close unregisters the collection callback. Instruments stay registered on the meter
// but report nothing further.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

func observeWith(attrs []attribute.KeyValue) []metric.ObserveOption {
	if len(attrs) == 0 {
		return nil
	}
	return []metric.ObserveOption{metric.WithAttributeSet(attribute.NewSet(attrs...))}
}
