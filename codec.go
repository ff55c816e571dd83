package goSession

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/protect"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/textenc"
)

// DefaultMaxValueSize is the largest cookie value accepted or produced by default.
const DefaultMaxValueSize = 4096

const segmentSeparator = "."

// KeySource supplies the current key ring. [*keyring.Holder] is the usual
// implementation; Load must be safe for concurrent use.
type KeySource interface {
	Load() *keyring.Ring
}

type staticKeys struct{ ring *keyring.Ring }

func (s staticKeys) Load() *keyring.Ring { return s.ring }

// StaticKeys returns a KeySource that always yields ring.
func StaticKeys(ring *keyring.Ring) KeySource {
	return staticKeys{ring: ring}
}

// CodecConfig wires the stages of a Codec.
type CodecConfig struct {
	Strategy protect.Strategy
	Keys     KeySource

	// Serializer defaults to session.Binary.
	Serializer session.Serializer
	// Encoding defaults to base64url.
	Encoding textenc.Encoding
	// MaxValueSize bounds the cookie value in bytes. Zero selects DefaultMaxValueSize.
	MaxValueSize int
}

// Codec converts sessions to cookie values and back.
//
// Encode runs serialize, protect under the active key, then text encode. Decode runs the
// inverse: text decode, unprotect against every candidate key, check expiry on the
// authenticated bytes, then deserialize. A Codec holds no mutable state of its own and is
// safe for concurrent use; the only shared state is its KeySource.
type Codec struct {
	strategy   protect.Strategy
	serializer session.Serializer
	encoding   textenc.Encoding
	keys       KeySource
	maxSize    int
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("%w: strategy is required", ErrInvalidConfig)
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("%w: key source is required", ErrInvalidConfig)
	}
	if cfg.Serializer == nil {
		cfg.Serializer = session.Binary{}
	}
	if cfg.Encoding == nil {
		cfg.Encoding = textenc.Default()
	}
	if cfg.MaxValueSize == 0 {
		cfg.MaxValueSize = DefaultMaxValueSize
	}
	if cfg.MaxValueSize < 0 {
		return nil, fmt.Errorf("%w: MaxValueSize must be > 0", ErrInvalidConfig)
	}
	if err := ValidateRing(cfg.Strategy, cfg.Keys.Load()); err != nil {
		return nil, fatal(err)
	}
	return &Codec{
		strategy:   cfg.Strategy,
		serializer: cfg.Serializer,
		encoding:   cfg.Encoding,
		keys:       cfg.Keys,
		maxSize:    cfg.MaxValueSize,
	}, nil
}

// ValidateRing reports whether every key in ring fits strategy.
func ValidateRing(strategy protect.Strategy, ring *keyring.Ring) error {
	if ring == nil {
		return fmt.Errorf("%w: %w", ErrInvalidKeyRing, keyring.ErrEmptyRing)
	}
	if ring.Purpose() != strategy.Purpose() {
		return fmt.Errorf("%w: %s mode requires %s keys, ring holds %s keys",
			ErrInvalidKeyRing, strategy.Mode(), strategy.Purpose(), ring.Purpose())
	}
	for _, k := range ring.Keys() {
		if err := strategy.ValidateKey(k); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidKeyRing, err)
		}
	}
	return nil
}

// Encode protects s under the active key and returns the cookie value.
func (c *Codec) Encode(s *session.Session) (string, error) {
	value, _, err := c.EncodeKey(s)
	return value, err
}

// EncodeKey is Encode that also returns the identifier of the key used.
func (c *Codec) EncodeKey(s *session.Session) (string, string, error) {
	ring := c.keys.Load()
	if ring == nil {
		return "", "", fatal(keyring.ErrEmptyRing)
	}

	payload, err := c.serializer.Encode(s)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	key := ring.Active()
	env, err := c.strategy.Protect(key, payload)
	if err != nil {
		return "", "", fatal(err)
	}

	segments := c.strategy.Segments(env)
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString(segmentSeparator)
		}
		b.WriteString(c.encoding.EncodeToString(seg))
	}
	if b.Len() > c.maxSize {
		return "", "", fmt.Errorf("%w: %d > %d bytes", ErrValueTooLarge, b.Len(), c.maxSize)
	}
	return b.String(), key.ID(), nil
}

// Decode returns the session carried by value if it authenticates and is unexpired at
// now. Rejections are *RejectionError values; fatal failures wrap ErrFatal.
func (c *Codec) Decode(value string, now time.Time) (*session.Session, error) {
	s, _, err := c.DecodeKey(value, now)
	return s, err
}

// DecodeKey is Decode that also returns the identifier of the key that authenticated
// the cookie.
func (c *Codec) DecodeKey(value string, now time.Time) (*session.Session, string, error) {
	env, err := c.parse(value)
	if err != nil {
		return nil, "", err
	}

	ring := c.keys.Load()
	if ring == nil {
		return nil, "", fatal(keyring.ErrEmptyRing)
	}

	payload, keyID, ok := c.unprotect(ring, env)
	if !ok {
		return nil, "", reject(AuthenticationFailed)
	}

	expiresAt, err := c.serializer.ExpiresAt(payload)
	if err != nil {
		return nil, "", reject(MalformedPayload)
	}
	if !now.Before(expiresAt) {
		return nil, "", reject(Expired)
	}

	s, err := c.serializer.Decode(payload)
	if err != nil {
		return nil, "", reject(MalformedPayload)
	}
	return s, keyID, nil
}

func (c *Codec) parse(value string) (protect.Envelope, error) {
	if value == "" || len(value) > c.maxSize {
		return protect.Envelope{}, reject(InvalidEncoding)
	}
	if strings.Count(value, segmentSeparator) != 2 {
		return protect.Envelope{}, reject(InvalidEncoding)
	}

	var segments [3][]byte
	rest := value
	for i := range segments {
		part := rest
		if i < 2 {
			idx := strings.Index(rest, segmentSeparator)
			part, rest = rest[:idx], rest[idx+1:]
		}
		if part == "" {
			return protect.Envelope{}, reject(InvalidEncoding)
		}
		raw, err := c.encoding.DecodeString(part)
		if err != nil || len(raw) == 0 {
			return protect.Envelope{}, reject(InvalidEncoding)
		}
		segments[i] = raw
	}
	return c.strategy.Envelope(segments), nil
}

// unprotect tries every candidate, newest first, and stops at the first that
// authenticates.
func (c *Codec) unprotect(ring *keyring.Ring, env protect.Envelope) ([]byte, string, bool) {
	for _, key := range ring.Candidates() {
		payload, err := c.strategy.Unprotect(key, env)
		if err == nil {
			return payload, key.ID(), true
		}
		if !errors.Is(err, protect.ErrRejected) {
			return nil, "", false
		}
	}
	return nil, "", false
}

// Strategy returns the protection strategy.
func (c *Codec) Strategy() protect.Strategy { return c.strategy }

// Serializer returns the session serializer.
func (c *Codec) Serializer() session.Serializer { return c.serializer }

// Encoding returns the text alphabet.
func (c *Codec) Encoding() textenc.Encoding { return c.encoding }

// MaxValueSize returns the cookie value size limit.
func (c *Codec) MaxValueSize() int { return c.maxSize }
