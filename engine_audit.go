package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/protect"
)

// AuditErrorCode is the stable error label written into audit events.
type AuditErrorCode string

const (
	auditErrInvalidEncoding      AuditErrorCode = "invalid_encoding"
	auditErrAuthenticationFailed AuditErrorCode = "authentication_failed"
	auditErrExpired              AuditErrorCode = "expired"
	auditErrMalformedPayload     AuditErrorCode = "malformed_payload"
	auditErrRandomSource         AuditErrorCode = "random_source"
	auditErrInvalidKeyRing       AuditErrorCode = "invalid_key_ring"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	keyID string,
	reason string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.clock().UTC(),
		EventType: eventType,
		Mode:      e.config.Mode.String(),
		KeyID:     keyID,
		Reason:    reason,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	if kind, ok := KindOf(err); ok {
		switch kind {
		case InvalidEncoding:
			return auditErrInvalidEncoding
		case AuthenticationFailed:
			return auditErrAuthenticationFailed
		case Expired:
			return auditErrExpired
		case MalformedPayload:
			return auditErrMalformedPayload
		}
	}

	switch {
	case errors.Is(err, protect.ErrRandomSource):
		return auditErrRandomSource
	case errors.Is(err, ErrInvalidKeyRing), errors.Is(err, protect.ErrInvalidKey):
		return auditErrInvalidKeyRing
	default:
		return auditErrInternal
	}
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(id, time.Since(start))
	}
}
