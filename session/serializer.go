package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedPayload is wrapped by every serializer error caused by bytes that do not
// match the expected structural encoding.
var ErrMalformedPayload = errors.New("malformed session payload")

// ErrUnknownSerializer is returned by Lookup for an unregistered serializer name.
var ErrUnknownSerializer = errors.New("unknown session serializer")

// Serializer converts a Session to and from a compact, self-delimiting binary form.
//
// Implementations must be deterministic: encoding the same session twice yields the same
// bytes. Decode and ExpiresAt must never panic on arbitrary input.
type Serializer interface {
	Name() string
	Encode(s *Session) ([]byte, error)
	Decode(data []byte) (*Session, error)
	// ExpiresAt reads only the expiry, without materializing the values.
	ExpiresAt(data []byte) (time.Time, error)
}

const (
	// EncodingBinary names the canonical length-prefixed binary format.
	EncodingBinary = "binary"
	// EncodingMsgpack names the msgpack array format.
	EncodingMsgpack = "msgpack"
)

// Lookup returns the serializer registered under name. An empty name selects binary.
func Lookup(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingBinary:
		return Binary{}, nil
	case EncodingMsgpack:
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSerializer, name)
	}
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, reason)
}
