package protect

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/MrEthical07/goSession/keyring"
	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher names.
const (
	CipherXChaCha20Poly1305 = "xchacha20-poly1305"
	CipherChaCha20Poly1305  = "chacha20-poly1305"
	CipherAES256GCM         = "aes-256-gcm"
)

const aeadKeySize = 32

// Encrypted seals the payload with an AEAD cipher.
//
// Every Protect call draws a fresh nonce from the configured random source; no API takes
// a caller nonce. The additional data is FormatVersion || uint8(len(id)) || id. Cookie
// layout: keyid.nonce.ciphertext.
type Encrypted struct {
	cipher    string
	nonceSize int
	newAEAD   func(key []byte) (cipher.AEAD, error)
	random    io.Reader
}

// NewEncrypted returns an encryption strategy reading nonces from crypto/rand. An empty
// name selects xchacha20-poly1305.
func NewEncrypted(name string) (*Encrypted, error) {
	return NewEncryptedWithRandom(name, rand.Reader)
}

// NewEncryptedWithRandom is NewEncrypted with an explicit nonce source. It exists for
// tests that need to exercise random source failures.
func NewEncryptedWithRandom(name string, random io.Reader) (*Encrypted, error) {
	if random == nil {
		random = rand.Reader
	}
	e := &Encrypted{random: random}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CipherXChaCha20Poly1305:
		e.cipher = CipherXChaCha20Poly1305
		e.nonceSize = chacha20poly1305.NonceSizeX
		e.newAEAD = chacha20poly1305.NewX
	case CipherChaCha20Poly1305:
		e.cipher = CipherChaCha20Poly1305
		e.nonceSize = chacha20poly1305.NonceSize
		e.newAEAD = chacha20poly1305.New
	case CipherAES256GCM:
		e.cipher = CipherAES256GCM
		e.nonceSize = 12
		e.newAEAD = newAESGCM
	default:
		return nil, fmt.Errorf("%w: cipher %q", ErrUnknownAlgorithm, name)
	}
	return e, nil
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (e *Encrypted) Mode() Mode { return ModeEncrypted }

func (e *Encrypted) Algorithm() string { return e.cipher }

func (e *Encrypted) Purpose() keyring.Purpose { return keyring.PurposeEncryption }

func (e *Encrypted) KeySize() int { return aeadKeySize }

// NonceSize returns the nonce length carried in each cookie.
func (e *Encrypted) NonceSize() int { return e.nonceSize }

func (e *Encrypted) ValidateKey(key keyring.Key) error {
	return validateKey(key, keyring.PurposeEncryption, aeadKeySize, e.cipher)
}

// Protect seals payload under key with a fresh nonce.
func (e *Encrypted) Protect(key keyring.Key, payload []byte) (Envelope, error) {
	if err := e.ValidateKey(key); err != nil {
		return Envelope{}, err
	}
	aead, err := e.newAEAD(key.Bytes())
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	nonce := make([]byte, e.nonceSize)
	if _, err := io.ReadFull(e.random, nonce); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}

	return Envelope{
		KeyID: key.ID(),
		Nonce: nonce,
		Body:  aead.Seal(nil, nonce, payload, aeadHeader(key.ID())),
	}, nil
}

// Unprotect opens env under key. Any failure yields ErrRejected and no plaintext.
func (e *Encrypted) Unprotect(key keyring.Key, env Envelope) ([]byte, error) {
	if e.ValidateKey(key) != nil || env.KeyID != key.ID() {
		return nil, ErrRejected
	}
	if len(env.Nonce) != e.nonceSize {
		return nil, ErrRejected
	}
	aead, err := e.newAEAD(key.Bytes())
	if err != nil {
		return nil, ErrRejected
	}
	if len(env.Body) < aead.Overhead() {
		return nil, ErrRejected
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Body, aeadHeader(key.ID()))
	if err != nil {
		return nil, ErrRejected
	}
	return plaintext, nil
}

func (e *Encrypted) Segments(env Envelope) [3][]byte {
	return [3][]byte{[]byte(env.KeyID), env.Nonce, env.Body}
}

func (e *Encrypted) Envelope(segments [3][]byte) Envelope {
	return Envelope{
		KeyID: string(segments[0]),
		Nonce: segments[1],
		Body:  segments[2],
	}
}

func aeadHeader(id string) []byte {
	return keyHeader([]byte{FormatVersion}, id)
}
