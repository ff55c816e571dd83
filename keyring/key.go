package keyring

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Purpose names what a key may be used for. Signing and encryption keys are never
// interchangeable.
type Purpose uint8

const (
	// PurposeSigning marks a MAC key.
	PurposeSigning Purpose = iota + 1
	// PurposeEncryption marks an AEAD key.
	PurposeEncryption
)

// MaxIDLength bounds key identifiers so they fit the one-byte length prefix bound into
// every MAC and AEAD header.
const MaxIDLength = 64

const redacted = "[REDACTED]"

var (
	// ErrInvalidKeyID is returned when an identifier is empty, too long, or not printable.
	ErrInvalidKeyID = errors.New("invalid key id")
	// ErrEmptySecret is returned when a key is built without secret bytes.
	ErrEmptySecret = errors.New("empty key secret")
	// ErrInvalidPurpose is returned for an unknown Purpose value.
	ErrInvalidPurpose = errors.New("invalid key purpose")
)

func (p Purpose) String() string {
	switch p {
	case PurposeSigning:
		return "signing"
	case PurposeEncryption:
		return "encryption"
	default:
		return fmt.Sprintf("purpose(%d)", uint8(p))
	}
}

// ParsePurpose maps "signing" or "encryption" to a Purpose.
func ParsePurpose(s string) (Purpose, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signing", "sign":
		return PurposeSigning, nil
	case "encryption", "encrypt":
		return PurposeEncryption, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPurpose, s)
	}
}

// Key is one secret with its identifier and purpose. The zero value is not usable.
//
// Key is immutable after construction and safe to share between goroutines.
type Key struct {
	id      string
	purpose Purpose
	secret  []byte
}

// NewKey validates id and purpose and copies secret into a new Key.
func NewKey(id string, purpose Purpose, secret []byte) (Key, error) {
	if err := ValidateID(id); err != nil {
		return Key{}, err
	}
	if purpose != PurposeSigning && purpose != PurposeEncryption {
		return Key{}, ErrInvalidPurpose
	}
	if len(secret) == 0 {
		return Key{}, ErrEmptySecret
	}
	return Key{
		id:      id,
		purpose: purpose,
		secret:  append([]byte(nil), secret...),
	}, nil
}

// ValidateID reports whether id can be carried in a cookie segment and a MAC header.
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return ErrInvalidKeyID
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c <= 0x20 || c >= 0x7f || c == '.' {
			return fmt.Errorf("%w: %q", ErrInvalidKeyID, id)
		}
	}
	return nil
}

// Generate returns a key with size random bytes and a fresh UUID identifier.
func Generate(purpose Purpose, size int) (Key, error) {
	return GenerateFrom(rand.Reader, purpose, size)
}

// GenerateFrom is Generate with an explicit entropy source.
func GenerateFrom(r io.Reader, purpose Purpose, size int) (Key, error) {
	if size <= 0 {
		return Key{}, ErrEmptySecret
	}
	secret := make([]byte, size)
	if _, err := io.ReadFull(r, secret); err != nil {
		return Key{}, fmt.Errorf("read key secret: %w", err)
	}
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return Key{}, fmt.Errorf("generate key id: %w", err)
	}
	return NewKey(id.String(), purpose, secret)
}

// ID returns the key identifier carried in cookies.
func (k Key) ID() string { return k.id }

// Purpose returns what the key may be used for.
func (k Key) Purpose() Purpose { return k.purpose }

// Len returns the secret length in bytes.
func (k Key) Len() int { return len(k.secret) }

// Secret returns a copy of the secret bytes.
func (k Key) Secret() []byte { return append([]byte(nil), k.secret...) }

// Bytes exposes the secret without copying. Callers must not modify or retain it.
func (k Key) Bytes() []byte { return k.secret }

// IsZero reports whether k was never initialized.
func (k Key) IsZero() bool { return k.id == "" && len(k.secret) == 0 }

func (k Key) String() string {
	return fmt.Sprintf("Key{id=%s purpose=%s secret=%s}", k.id, k.purpose, redacted)
}

func (k Key) GoString() string { return k.String() }

// LogValue keeps secrets out of slog output.
func (k Key) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", k.id),
		slog.String("purpose", k.purpose.String()),
		slog.Int("len", len(k.secret)),
	)
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k Key) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"id":%q,"purpose":%q,"secret":%q}`, k.id, k.purpose.String(), redacted)), nil
}
