package goSession

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected matches every cookie rejection, whatever its kind.
	ErrRejected = errors.New("session rejected")
	// ErrInvalidEncoding matches cookies whose text structure is malformed.
	ErrInvalidEncoding = errors.New("invalid session encoding")
	// ErrAuthenticationFailed matches cookies no candidate key authenticates.
	ErrAuthenticationFailed = errors.New("session authentication failed")
	// ErrExpired matches authenticated cookies past their expiry.
	ErrExpired = errors.New("session expired")
	// ErrMalformedPayload matches authenticated cookies whose payload does not deserialize.
	ErrMalformedPayload = errors.New("malformed session payload")

	// ErrFatal wraps failures that must surface as server errors: an exhausted random
	// source, invalid key material, or a missing key ring.
	ErrFatal = errors.New("session codec fatal error")

	// ErrInvalidSession is returned when a session cannot be serialized.
	ErrInvalidSession = errors.New("invalid session")
	// ErrValueTooLarge is returned when an encoded cookie exceeds the configured limit.
	ErrValueTooLarge = errors.New("encoded session exceeds maximum size")
	// ErrInvalidKeyRing is returned when a ring does not fit the configured strategy.
	ErrInvalidKeyRing = errors.New("invalid key ring")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrEngineNotReady is returned by a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// RejectionKind classifies why a cookie was refused. Every kind means the same thing to
// the host: discard the cookie and continue with a fresh anonymous session.
type RejectionKind uint8

const (
	// InvalidEncoding: the text structure is malformed. No cryptographic work was done.
	InvalidEncoding RejectionKind = iota + 1
	// AuthenticationFailed: the tag or ciphertext did not validate against any key.
	AuthenticationFailed
	// Expired: authentic, but past its validity window.
	Expired
	// MalformedPayload: authentic and unexpired, but the payload does not deserialize.
	MalformedPayload
)

func (k RejectionKind) String() string {
	switch k {
	case InvalidEncoding:
		return "invalid_encoding"
	case AuthenticationFailed:
		return "authentication_failed"
	case Expired:
		return "expired"
	case MalformedPayload:
		return "malformed_payload"
	default:
		return fmt.Sprintf("rejection(%d)", uint8(k))
	}
}

func (k RejectionKind) sentinel() error {
	switch k {
	case InvalidEncoding:
		return ErrInvalidEncoding
	case AuthenticationFailed:
		return ErrAuthenticationFailed
	case Expired:
		return ErrExpired
	case MalformedPayload:
		return ErrMalformedPayload
	default:
		return nil
	}
}

// RejectionError is the single error type returned for a refused cookie. It carries the
// kind and nothing else about the cookie.
type RejectionError struct {
	Kind RejectionKind
}

func (e *RejectionError) Error() string {
	return "session rejected: " + e.Kind.String()
}

// Is matches ErrRejected and the sentinel for e.Kind.
func (e *RejectionError) Is(target error) bool {
	if target == ErrRejected {
		return true
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func reject(kind RejectionKind) error {
	return &RejectionError{Kind: kind}
}

func fatal(err error) error {
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// KindOf returns the rejection kind of err, or false when err is not a rejection.
func KindOf(err error) (RejectionKind, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Kind, true
	}
	return 0, false
}

// IsFatal reports whether err must be surfaced as a server error.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
