package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/session"
)

// Engine is the configured session codec with observability attached.
//
// An Engine is built once by a Builder and is safe for concurrent use. The only state
// that changes after Build is the key ring, which Rotate replaces atomically: a decode
// running during a rotation sees either the old ring or the new one, never a mix.
type Engine struct {
	config  Config
	codec   *Codec
	holder  *keyring.Holder
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	clock   func() time.Time
	closed  atomic.Bool
}

func (e *Engine) ready() error {
	if e == nil || e.codec == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// Encode protects s under the active key and returns the cookie value.
//
// ErrInvalidSession and ErrValueTooLarge describe the session; an error wrapping ErrFatal
// means the engine cannot protect anything and should surface as a server error.
func (e *Engine) Encode(ctx context.Context, s *session.Session) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	start := time.Now()
	value, keyID, err := e.codec.EncodeKey(s)
	e.observe(MetricEncodeLatency, start)

	switch {
	case err == nil:
		e.metrics.Inc(MetricEncodeSuccess)
		return value, nil
	case errors.Is(err, ErrValueTooLarge):
		e.metrics.Inc(MetricEncodeTooLarge)
		e.logger.WarnContext(ctx, "session exceeds cookie size limit",
			"limit", e.codec.MaxValueSize(),
			"values", s.Len(),
		)
	case IsFatal(err):
		e.metrics.Inc(MetricEncodeFatal)
		e.logger.ErrorContext(ctx, "session encode failed", "key_id", keyID, "error", err)
		e.emitAudit(ctx, AuditSessionFatal, false, keyID, "encode", err, nil)
	}
	return "", err
}

// Decode returns the session carried by value if it authenticates and is unexpired at now.
func (e *Engine) Decode(ctx context.Context, value string, now time.Time) (*session.Session, error) {
	s, _, err := e.DecodeKey(ctx, value, now)
	return s, err
}

// DecodeKey returns the session carried by value if it authenticates and is unexpired
// at now, together with the identifier of the key that authenticated it.
//
// Every rejection is a *RejectionError matching ErrRejected. Callers treat all kinds
// alike: drop the cookie and start a fresh session.
func (e *Engine) DecodeKey(ctx context.Context, value string, now time.Time) (*session.Session, string, error) {
	if err := e.ready(); err != nil {
		return nil, "", err
	}

	start := time.Now()
	s, keyID, err := e.codec.DecodeKey(value, now)
	e.observe(MetricDecodeLatency, start)

	if err == nil {
		e.metrics.Inc(MetricDecodeSuccess)
		if ring := e.holder.Load(); !ring.IsActive(keyID) {
			e.metrics.Inc(MetricDecodeRetiredKey)
		}
		return s, keyID, nil
	}

	if kind, ok := KindOf(err); ok {
		e.metrics.Inc(rejectionMetric(kind))
		e.logger.DebugContext(ctx, "session cookie rejected", "reason", kind.String())
		e.emitAudit(ctx, AuditSessionRejected, false, "", kind.String(), err, nil)
		return nil, "", err
	}

	e.metrics.Inc(MetricDecodeFatal)
	e.logger.ErrorContext(ctx, "session decode failed", "error", err)
	e.emitAudit(ctx, AuditSessionFatal, false, "", "decode", err, nil)
	return nil, "", err
}

// IsRetired reports whether keyID names a key that is still accepted but no longer
// active. Cookies under a retired key should be re-issued.
func (e *Engine) IsRetired(keyID string) bool {
	if e.ready() != nil {
		return false
	}
	ring := e.holder.Load()
	_, ok := ring.Lookup(keyID)
	return ok && !ring.IsActive(keyID)
}

/*
====================================
SESSION LIFETIME
====================================
*/

// NewSession returns an empty session expiring one TTL after now.
func (e *Engine) NewSession(now time.Time) *session.Session {
	return session.New(now.Add(e.config.Session.TTL))
}

// NeedsRenewal reports whether sliding expiration applies to s at now: the session is
// still valid and less than RenewWindow of its lifetime remains.
func (e *Engine) NeedsRenewal(s *session.Session, now time.Time) bool {
	if e == nil || s == nil || !e.config.Session.SlidingExpiration {
		return false
	}
	if s.Expired(now) {
		return false
	}
	return s.ExpiresAt.Sub(now) < e.config.Session.RenewWindow
}

// Renew re-encodes s with its expiry moved to one TTL after now. s is updated only
// when encoding succeeds.
func (e *Engine) Renew(ctx context.Context, s *session.Session, now time.Time) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if s == nil {
		return "", fmt.Errorf("%w: nil session", ErrInvalidSession)
	}
	renewed := s.Clone()
	renewed.ExpiresAt = now.Add(e.config.Session.TTL).UTC()
	value, err := e.Encode(ctx, renewed)
	if err != nil {
		return "", err
	}
	s.ExpiresAt = renewed.ExpiresAt
	e.metrics.Inc(MetricSessionRenewed)
	return value, nil
}

/*
====================================
KEY ROTATION
====================================
*/

// ValidateRing reports whether ring fits the engine's strategy. It never mutates the
// engine and is suitable as the validate callback of keyring.Distributor.Watch.
func (e *Engine) ValidateRing(ring *keyring.Ring) error {
	if err := e.ready(); err != nil {
		return err
	}
	return ValidateRing(e.codec.Strategy(), ring)
}

// Rotate atomically replaces the key ring. A ring that does not fit the strategy is
// refused and the current ring stays in place.
func (e *Engine) Rotate(ctx context.Context, ring *keyring.Ring) error {
	if err := e.ready(); err != nil {
		return err
	}

	if err := e.ValidateRing(ring); err != nil {
		e.metrics.Inc(MetricKeyRotationRejected)
		e.logger.WarnContext(ctx, "key rotation refused", "error", err)
		e.emitAudit(ctx, AuditRotationDenied, false, "", "validation", err, nil)
		return err
	}

	prev, err := e.holder.Swap(ring)
	if err != nil {
		e.metrics.Inc(MetricKeyRotationRejected)
		return err
	}

	activeID := ring.Active().ID()
	e.metrics.Inc(MetricKeyRotated)
	e.logger.InfoContext(ctx, "key ring rotated",
		"active_key", activeID,
		"previous_active_key", prev.Active().ID(),
		"keys", ring.Len(),
	)
	e.emitAudit(ctx, AuditKeyRotated, true, activeID, "", nil, func() map[string]string {
		return map[string]string{
			"previous_key_id": prev.Active().ID(),
			"keys":            fmt.Sprint(ring.Len()),
		}
	})
	return nil
}

// Ring returns the current key ring.
func (e *Engine) Ring() *keyring.Ring {
	if e == nil || e.holder == nil {
		return nil
	}
	return e.holder.Load()
}

// Holder returns the engine's key holder.
func (e *Engine) Holder() *keyring.Holder {
	if e == nil {
		return nil
	}
	return e.holder
}

// Codec returns the underlying codec.
func (e *Engine) Codec() *Codec {
	if e == nil {
		return nil
	}
	return e.codec
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

// CookieName returns the configured cookie name including any prefix.
func (e *Engine) CookieName() string {
	if e == nil {
		return ""
	}
	return e.config.Cookie.CookieName()
}

// Close flushes the audit dispatcher. The engine rejects calls afterwards.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}
