package keyring

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	minPassphraseBytes = 10
	minSaltBytes       = 16
)

var (
	// ErrWeakPassphrase is returned for passphrases shorter than the minimum.
	ErrWeakPassphrase = errors.New("passphrase too short")
	// ErrShortSalt is returned for salts shorter than 16 bytes.
	ErrShortSalt = errors.New("salt too short")
)

// Argon2Params tunes DeriveArgon2id. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// DefaultArgon2Params returns the argon2id cost used when none is configured.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
	}
}

func (p Argon2Params) validate() error {
	if p.Memory < 8*1024 {
		return errors.New("argon2 memory must be >= 8192 KB")
	}
	if p.Time < 1 {
		return errors.New("argon2 time must be >= 1")
	}
	if p.Parallelism < 1 {
		return errors.New("argon2 parallelism must be >= 1")
	}
	return nil
}

// DeriveScrypt stretches passphrase into a size-byte key with scrypt (N=2^15, r=8, p=1).
func DeriveScrypt(id string, purpose Purpose, passphrase, salt []byte, size int) (Key, error) {
	if err := checkKDFInput(passphrase, salt, size); err != nil {
		return Key{}, err
	}
	secret, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, size)
	if err != nil {
		return Key{}, fmt.Errorf("scrypt: %w", err)
	}
	return NewKey(id, purpose, secret)
}

// DeriveArgon2id stretches passphrase into a size-byte key with argon2id.
func DeriveArgon2id(id string, purpose Purpose, passphrase, salt []byte, size int, params Argon2Params) (Key, error) {
	if err := checkKDFInput(passphrase, salt, size); err != nil {
		return Key{}, err
	}
	if err := params.validate(); err != nil {
		return Key{}, err
	}
	secret := argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Parallelism, uint32(size))
	return NewKey(id, purpose, secret)
}

// DeriveHKDF expands a high-entropy master secret into a size-byte subkey with
// HKDF-SHA-512. Distinct info strings yield independent keys from one master.
func DeriveHKDF(id string, purpose Purpose, master, salt, info []byte, size int) (Key, error) {
	if len(master) == 0 {
		return Key{}, ErrEmptySecret
	}
	if size <= 0 {
		return Key{}, ErrEmptySecret
	}
	if len(salt) == 0 {
		salt = make([]byte, sha512.Size)
	}
	reader := hkdf.New(sha512.New, master, salt, info)
	secret := make([]byte, size)
	if _, err := io.ReadFull(reader, secret); err != nil {
		return Key{}, fmt.Errorf("hkdf: %w", err)
	}
	return NewKey(id, purpose, secret)
}

func checkKDFInput(passphrase, salt []byte, size int) error {
	if len(passphrase) < minPassphraseBytes {
		return ErrWeakPassphrase
	}
	if len(salt) < minSaltBytes {
		return ErrShortSalt
	}
	if size <= 0 {
		return ErrEmptySecret
	}
	return nil
}
