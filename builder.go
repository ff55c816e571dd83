package goSession

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/textenc"
)

// Builder assembles an Engine. A Builder is single-use: the second Build fails.
type Builder struct {
	config Config
	ring   *keyring.Ring
	holder *keyring.Holder

	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time
	random    io.Reader

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithKeyRing sets the initial ring. The engine owns a new Holder for it.
func (b *Builder) WithKeyRing(ring *keyring.Ring) *Builder {
	b.ring = ring
	return b
}

// WithKeyHolder shares an existing Holder, for example one kept current by a
// keyring.Distributor. It takes precedence over WithKeyRing.
func (b *Builder) WithKeyHolder(holder *keyring.Holder) *Builder {
	b.holder = holder
	return b
}

// WithAuditSink sets the sink that receives audit events when audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used by Engine.Now and audit timestamps.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithRandom overrides the nonce source of encrypted mode. Only tests should need it.
func (b *Builder) WithRandom(r io.Reader) *Builder {
	b.random = r
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the encode and decode latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and key ring and returns a ready Engine.
//
// A ring whose keys do not fit the configured algorithm fails with ErrFatal; such a
// ring can never protect or verify a cookie.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	random := b.random
	if random == nil {
		random = rand.Reader
	}
	strategy, err := cfg.strategy(random)
	if err != nil {
		return nil, err
	}

	holder := b.holder
	if holder == nil {
		if b.ring == nil {
			return nil, fmt.Errorf("%w: key ring required", ErrInvalidConfig)
		}
		holder, err = keyring.NewHolder(b.ring)
		if err != nil {
			return nil, err
		}
	}

	serializer, err := session.Lookup(cfg.Session.Serializer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	encoding, err := textenc.Lookup(cfg.Session.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	codec, err := NewCodec(CodecConfig{
		Strategy:     strategy,
		Keys:         holder,
		Serializer:   serializer,
		Encoding:     encoding,
		MaxValueSize: cfg.Session.MaxCookieSize,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:  cfg,
		codec:   codec,
		holder:  holder,
		logger:  logger.With("component", "gosession"),
		clock:   clock,
		metrics: NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true

	engine.logger.Info("session engine ready",
		"mode", cfg.Mode.String(),
		"algorithm", strategy.Algorithm(),
		"serializer", serializer.Name(),
		"alphabet", encoding.Name(),
		"active_key", holder.Load().Active().ID(),
		"keys", holder.Load().Len(),
	)

	return engine, nil
}
