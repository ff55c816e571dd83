package keyring

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedFormatVersion = 1

var sealedAAD = []byte("gosession/ring/v1")

var (
	// ErrInvalidKEK is returned when the key-encryption key is not 32 bytes.
	ErrInvalidKEK = errors.New("key-encryption key must be 32 bytes")
	// ErrSealedRing is returned when a sealed ring cannot be opened.
	ErrSealedRing = errors.New("sealed ring rejected")
)

type sealedKey struct {
	ID     string `json:"id"`
	Secret []byte `json:"secret"`
}

type sealedDocument struct {
	Purpose string      `json:"purpose"`
	Keys    []sealedKey `json:"keys"`
}

// Seal encrypts ring under kek with XChaCha20-Poly1305 for storage or transport.
//
// Layout: version:u8 | nonce:24 | ciphertext.
func Seal(ring *Ring, kek []byte) ([]byte, error) {
	return SealWithRandom(rand.Reader, ring, kek)
}

// SealWithRandom is Seal with an explicit nonce source.
func SealWithRandom(random io.Reader, ring *Ring, kek []byte) ([]byte, error) {
	if ring == nil {
		return nil, ErrEmptyRing
	}
	aead, err := newKEKCipher(kek)
	if err != nil {
		return nil, err
	}

	doc := sealedDocument{
		Purpose: ring.Purpose().String(),
		Keys:    make([]sealedKey, 0, ring.Len()),
	}
	for _, k := range ring.keys {
		doc.Keys = append(doc.Keys, sealedKey{ID: k.id, Secret: k.secret})
	}
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal ring: %w", err)
	}
	defer wipe(plaintext)

	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = sealedFormatVersion
	if _, err := io.ReadFull(random, out[1:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return aead.Seal(out, out[1:], plaintext, sealedAAD), nil
}

// Open decrypts a blob produced by Seal and rebuilds the ring.
func Open(blob, kek []byte) (*Ring, error) {
	aead, err := newKEKCipher(kek)
	if err != nil {
		return nil, err
	}
	if len(blob) < 1+aead.NonceSize()+aead.Overhead() || blob[0] != sealedFormatVersion {
		return nil, ErrSealedRing
	}
	nonce := blob[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, blob[1+aead.NonceSize():], sealedAAD)
	if err != nil {
		return nil, ErrSealedRing
	}
	defer wipe(plaintext)

	var doc sealedDocument
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedRing, err)
	}
	purpose, err := ParsePurpose(doc.Purpose)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(doc.Keys))
	for _, sk := range doc.Keys {
		k, err := NewKey(sk.ID, purpose, sk.Secret)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return NewRing(keys...)
}

func newKEKCipher(kek []byte) (cipher.AEAD, error) {
	if len(kek) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKEK
	}
	return chacha20poly1305.NewX(kek)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
