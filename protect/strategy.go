package protect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/keyring"
)

// Mode selects between the signed and encrypted cookie formats.
type Mode uint8

const (
	// ModeSigned keeps the payload visible and authenticates it with a MAC.
	ModeSigned Mode = iota + 1
	// ModeEncrypted hides the payload with an AEAD cipher.
	ModeEncrypted
)

func (m Mode) String() string {
	switch m {
	case ModeSigned:
		return "signed"
	case ModeEncrypted:
		return "encrypted"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode maps "signed" or "encrypted" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signed", "sign":
		return ModeSigned, nil
	case "encrypted", "encrypt", "private":
		return ModeEncrypted, nil
	default:
		return 0, fmt.Errorf("%w: mode %q", ErrUnknownAlgorithm, s)
	}
}

// FormatVersion is written into every AEAD header.
const FormatVersion byte = 1

var (
	// ErrRejected is returned when an envelope does not authenticate under a key.
	// No partial plaintext accompanies it.
	ErrRejected = errors.New("envelope rejected")
	// ErrRandomSource is returned when the nonce source cannot supply enough bytes.
	ErrRandomSource = errors.New("random source failure")
	// ErrInvalidKey is returned for a key with the wrong purpose or length.
	ErrInvalidKey = errors.New("invalid key material")
	// ErrUnknownAlgorithm is returned for an unsupported algorithm or cipher name.
	ErrUnknownAlgorithm = errors.New("unknown protection algorithm")
)

// Envelope is the protected form of one serialized session.
//
// Signed envelopes carry Body (the payload) and Tag. Encrypted envelopes carry Nonce and
// Body (ciphertext including the AEAD tag).
type Envelope struct {
	KeyID string
	Nonce []byte
	Body  []byte
	Tag   []byte
}

// Strategy protects serialized sessions. Implementations are stateless apart from their
// configuration and safe for concurrent use.
type Strategy interface {
	Mode() Mode
	// Algorithm names the MAC or cipher, e.g. "hs256" or "xchacha20-poly1305".
	Algorithm() string
	Purpose() keyring.Purpose
	// KeySize is the only secret length this strategy accepts.
	KeySize() int
	// ValidateKey reports ErrInvalidKey for keys this strategy cannot use.
	ValidateKey(key keyring.Key) error
	Protect(key keyring.Key, payload []byte) (Envelope, error)
	// Unprotect returns the payload, or ErrRejected if env does not authenticate under key.
	Unprotect(key keyring.Key, env Envelope) ([]byte, error)
	// Segments orders the envelope parts as they appear in the cookie.
	Segments(env Envelope) [3][]byte
	// Envelope is the inverse of Segments.
	Envelope(segments [3][]byte) Envelope
}

// New returns the strategy for mode and algorithm. An empty algorithm selects the mode's
// default (hs256 for signed, xchacha20-poly1305 for encrypted).
func New(mode Mode, algorithm string) (Strategy, error) {
	switch mode {
	case ModeSigned:
		return NewSigned(algorithm)
	case ModeEncrypted:
		return NewEncrypted(algorithm)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, mode)
	}
}

func validateKey(key keyring.Key, purpose keyring.Purpose, size int, algorithm string) error {
	if key.IsZero() {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if key.Purpose() != purpose {
		return fmt.Errorf("%w: key %q has purpose %s, %s requires %s", ErrInvalidKey, key.ID(), key.Purpose(), algorithm, purpose)
	}
	if key.Len() != size {
		return fmt.Errorf("%w: key %q is %d bytes, %s requires %d", ErrInvalidKey, key.ID(), key.Len(), algorithm, size)
	}
	return nil
}

// keyHeader returns uint8(len(id)) || id.
func keyHeader(prefix []byte, id string) []byte {
	out := make([]byte, 0, len(prefix)+1+len(id))
	out = append(out, prefix...)
	out = append(out, byte(len(id)))
	out = append(out, id...)
	return out
}
