// Package textenc maps protected cookie bytes to cookie-safe text.
//
// Every alphabet decodes strictly: input is accepted only if it is the exact encoding
// the encoder would produce for the decoded bytes. Padding, line breaks, mixed case and
// non-zero trailing bits are all rejected, so changing any character of a valid value
// either fails to decode or decodes to different bytes. None of the alphabets contains
// '.', which separates cookie segments.
package textenc

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidText is returned when a string is not a canonical encoding.
var ErrInvalidText = errors.New("invalid text encoding")

// ErrUnknownAlphabet is returned by Lookup for an unsupported name.
var ErrUnknownAlphabet = errors.New("unknown text alphabet")

// Alphabet names.
const (
	Base64URL = "base64url"
	Base64    = "base64"
	Base32    = "base32"
	Hex       = "hex"
)

// Encoding converts between bytes and cookie-safe text.
type Encoding interface {
	Name() string
	EncodeToString(src []byte) string
	DecodeString(s string) ([]byte, error)
}

type codec struct {
	name   string
	encode func([]byte) string
	decode func(string) ([]byte, error)
}

func (c codec) Name() string { return c.name }

func (c codec) EncodeToString(src []byte) string { return c.encode(src) }

func (c codec) DecodeString(s string) ([]byte, error) {
	out, err := c.decode(s)
	if err != nil {
		return nil, ErrInvalidText
	}
	if c.encode(out) != s {
		return nil, ErrInvalidText
	}
	return out, nil
}

var (
	base64URLEncoding = base64.RawURLEncoding.Strict()
	base64StdEncoding = base64.RawStdEncoding.Strict()
	base32Encoding    = base32.StdEncoding.WithPadding(base32.NoPadding)
)

var registry = map[string]Encoding{
	Base64URL: codec{name: Base64URL, encode: base64URLEncoding.EncodeToString, decode: base64URLEncoding.DecodeString},
	Base64:    codec{name: Base64, encode: base64StdEncoding.EncodeToString, decode: base64StdEncoding.DecodeString},
	Base32:    codec{name: Base32, encode: base32Encoding.EncodeToString, decode: base32Encoding.DecodeString},
	Hex:       codec{name: Hex, encode: hex.EncodeToString, decode: hex.DecodeString},
}

// Default returns the base64url alphabet.
func Default() Encoding {
	return registry[Base64URL]
}

// Lookup returns the encoding registered under name. An empty name selects base64url.
func Lookup(name string) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Default(), nil
	}
	enc, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlphabet, name)
	}
	return enc, nil
}

// Names lists the supported alphabets.
func Names() []string {
	return []string{Base64URL, Base64, Base32, Hex}
}
