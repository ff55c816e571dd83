package protect

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/keyring"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"
)

// Signing algorithm names.
const (
	AlgorithmHS256   = "hs256"
	AlgorithmHS384   = "hs384"
	AlgorithmHS512   = "hs512"
	AlgorithmBLAKE2b = "blake2b"
)

// Signed authenticates a visible payload with a keyed MAC.
//
// The MAC covers uint8(len(id)) || id || payload, where id names the signing key. Cookie
// layout: payload.keyid.tag.
type Signed struct {
	algorithm string
	keySize   int
	hmac      *jwt.SigningMethodHMAC
}

// NewSigned returns a signing strategy. An empty algorithm selects hs256.
func NewSigned(algorithm string) (*Signed, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmHS256:
		return &Signed{algorithm: AlgorithmHS256, keySize: 32, hmac: jwt.SigningMethodHS256}, nil
	case AlgorithmHS384:
		return &Signed{algorithm: AlgorithmHS384, keySize: 48, hmac: jwt.SigningMethodHS384}, nil
	case AlgorithmHS512:
		return &Signed{algorithm: AlgorithmHS512, keySize: 64, hmac: jwt.SigningMethodHS512}, nil
	case AlgorithmBLAKE2b:
		return &Signed{algorithm: AlgorithmBLAKE2b, keySize: 32}, nil
	default:
		return nil, fmt.Errorf("%w: signing algorithm %q", ErrUnknownAlgorithm, algorithm)
	}
}

func (s *Signed) Mode() Mode { return ModeSigned }

func (s *Signed) Algorithm() string { return s.algorithm }

func (s *Signed) Purpose() keyring.Purpose { return keyring.PurposeSigning }

func (s *Signed) KeySize() int { return s.keySize }

func (s *Signed) ValidateKey(key keyring.Key) error {
	return validateKey(key, keyring.PurposeSigning, s.keySize, s.algorithm)
}

// Protect computes the tag for payload under key.
func (s *Signed) Protect(key keyring.Key, payload []byte) (Envelope, error) {
	if err := s.ValidateKey(key); err != nil {
		return Envelope{}, err
	}
	tag, err := s.sign(key, payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		KeyID: key.ID(),
		Body:  payload,
		Tag:   tag,
	}, nil
}

// Unprotect verifies env.Tag in constant time and returns the payload.
func (s *Signed) Unprotect(key keyring.Key, env Envelope) ([]byte, error) {
	if s.ValidateKey(key) != nil || env.KeyID != key.ID() {
		return nil, ErrRejected
	}
	if !s.verify(key, env.Body, env.Tag) {
		return nil, ErrRejected
	}
	return env.Body, nil
}

func (s *Signed) Segments(env Envelope) [3][]byte {
	return [3][]byte{env.Body, []byte(env.KeyID), env.Tag}
}

func (s *Signed) Envelope(segments [3][]byte) Envelope {
	return Envelope{
		Body:  segments[0],
		KeyID: string(segments[1]),
		Tag:   segments[2],
	}
}

func (s *Signed) macInput(id string, payload []byte) []byte {
	return append(keyHeader(nil, id), payload...)
}

func (s *Signed) sign(key keyring.Key, payload []byte) ([]byte, error) {
	input := s.macInput(key.ID(), payload)
	if s.hmac == nil {
		return blake2bMAC(key.Bytes(), input)
	}
	tag, err := s.hmac.Sign(string(input), key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return tag, nil
}

func (s *Signed) verify(key keyring.Key, payload, tag []byte) bool {
	input := s.macInput(key.ID(), payload)
	if s.hmac == nil {
		want, err := blake2bMAC(key.Bytes(), input)
		if err != nil {
			return false
		}
		return subtle.ConstantTimeCompare(want, tag) == 1
	}
	// SigningMethodHMAC.Verify compares with hmac.Equal.
	return s.hmac.Verify(string(input), tag, key.Bytes()) == nil
}

func blake2bMAC(key, input []byte) ([]byte, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	h.Write(input)
	return h.Sum(nil), nil
}
