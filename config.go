package goSession

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/protect"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/textenc"
)

// Mode selects signed or encrypted cookies.
type Mode = protect.Mode

const (
	// ModeSigned keeps the payload visible and authenticates it.
	ModeSigned = protect.ModeSigned
	// ModeEncrypted hides and authenticates the payload.
	ModeEncrypted = protect.ModeEncrypted
)

// Config holds every engine setting. Build copies it; later changes to the caller's
// value have no effect.
type Config struct {
	Mode       Mode
	Signing    SigningConfig
	Encryption EncryptionConfig
	Session    SessionConfig
	Cookie     CookieConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
PROTECTION CONFIG
====================================
*/

// SigningConfig applies when Mode is ModeSigned.
type SigningConfig struct {
	Algorithm string // "hs256" (default), "hs384", "hs512", "blake2b"
}

// EncryptionConfig applies when Mode is ModeEncrypted.
type EncryptionConfig struct {
	Cipher string // "xchacha20-poly1305" (default), "chacha20-poly1305", "aes-256-gcm"
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and the cookie payload format.
type SessionConfig struct {
	TTL time.Duration
	// SlidingExpiration re-issues a cookie once its remaining lifetime drops below
	// RenewWindow.
	SlidingExpiration bool
	RenewWindow       time.Duration
	Serializer        string // "binary" (default) or "msgpack"
	Alphabet          string // "base64url" (default), "base64", "base32", "hex"
	MaxCookieSize     int
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the Set-Cookie attributes written by the middleware.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite

	// HostPrefix adds the "__Host-" prefix, which requires Secure, Path "/" and no Domain.
	HostPrefix  bool
	Partitioned bool
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Mode: ModeSigned,
		Signing: SigningConfig{
			Algorithm: protect.AlgorithmHS256,
		},
		Encryption: EncryptionConfig{
			Cipher: protect.CipherXChaCha20Poly1305,
		},
		Session: SessionConfig{
			TTL:               24 * time.Hour,
			SlidingExpiration: true,
			RenewWindow:       DefaultRenewWindow(24 * time.Hour),
			Serializer:        session.EncodingBinary,
			Alphabet:          textenc.Base64URL,
			MaxCookieSize:     DefaultMaxValueSize,
		},
		Cookie: CookieConfig{
			Name:     "session",
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultRenewWindow is the renew window used when sliding expiration is on and no
// window is set: the last quarter of the TTL.
func DefaultRenewWindow(ttl time.Duration) time.Duration {
	return ttl / 4
}

// DefaultConfig returns signed HS256 cookies with a one day sliding lifetime.
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig returns encrypted cookies with a short lifetime, a __Host- name and
// strict SameSite. Audit and metrics are on.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Mode = ModeEncrypted
	cfg.Session.TTL = time.Hour
	cfg.Session.RenewWindow = 15 * time.Minute
	cfg.Cookie.HostPrefix = true
	cfg.Cookie.SameSite = http.SameSiteStrictMode
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeSigned:
		if _, err := protect.NewSigned(c.Signing.Algorithm); err != nil {
			return err
		}
	case ModeEncrypted:
		if _, err := protect.NewEncrypted(c.Encryption.Cipher); err != nil {
			return err
		}
	default:
		return errors.New("Mode must be ModeSigned or ModeEncrypted")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.RenewWindow < 0 {
		return errors.New("Session RenewWindow must be >= 0")
	}
	if c.Session.SlidingExpiration && c.Session.RenewWindow <= 0 {
		return errors.New("Session RenewWindow must be > 0 when SlidingExpiration is true")
	}
	if c.Session.RenewWindow >= c.Session.TTL && c.Session.SlidingExpiration {
		return errors.New("Session RenewWindow must be shorter than TTL")
	}
	if _, err := session.Lookup(c.Session.Serializer); err != nil {
		return errors.New("Session Serializer must be 'binary' or 'msgpack'")
	}
	if _, err := textenc.Lookup(c.Session.Alphabet); err != nil {
		return fmt.Errorf("Session Alphabet must be one of %s", strings.Join(textenc.Names(), ", "))
	}
	if c.Session.MaxCookieSize <= 0 {
		return errors.New("Session MaxCookieSize must be > 0")
	}
	if c.Session.MaxCookieSize > DefaultMaxValueSize {
		return fmt.Errorf("Session MaxCookieSize must be <= %d", DefaultMaxValueSize)
	}

	// Cookie
	if err := validateCookieName(c.Cookie.Name); err != nil {
		return err
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}
	if c.Cookie.Partitioned && !c.Cookie.Secure {
		return errors.New("Cookie Partitioned requires Secure")
	}
	if c.Cookie.HostPrefix {
		if !c.Cookie.Secure {
			return errors.New("Cookie HostPrefix requires Secure")
		}
		if c.Cookie.Domain != "" {
			return errors.New("Cookie HostPrefix forbids Domain")
		}
		if c.Cookie.Path != "/" {
			return errors.New("Cookie HostPrefix requires Path \"/\"")
		}
	}
	if c.Cookie.Path != "" && !strings.HasPrefix(c.Cookie.Path, "/") {
		return errors.New("Cookie Path must start with '/'")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func validateCookieName(name string) error {
	if name == "" {
		return errors.New("Cookie Name must not be empty")
	}
	if strings.HasPrefix(name, "__Host-") || strings.HasPrefix(name, "__Secure-") {
		return errors.New("Cookie Name must not carry a prefix; use HostPrefix")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || strings.IndexByte("()<>@,;:\\\"/[]?={}", c) >= 0 {
			return fmt.Errorf("Cookie Name contains invalid character %q", c)
		}
	}
	return nil
}

// CookieName returns the cookie name including any "__Host-" prefix.
func (c CookieConfig) CookieName() string {
	if c.HostPrefix {
		return "__Host-" + c.Name
	}
	return c.Name
}

// strategy builds the protection strategy selected by c. random feeds AEAD nonces.
// Strategy returns the protection strategy c selects, with nonces from crypto/rand.
func (c Config) Strategy() (protect.Strategy, error) {
	return c.strategy(nil)
}

func (c *Config) strategy(random io.Reader) (protect.Strategy, error) {
	switch c.Mode {
	case ModeSigned:
		return protect.NewSigned(c.Signing.Algorithm)
	case ModeEncrypted:
		return protect.NewEncryptedWithRandom(c.Encryption.Cipher, random)
	default:
		return nil, fmt.Errorf("%w: unknown mode %s", ErrInvalidConfig, c.Mode)
	}
}

// ParseSameSite maps "lax", "strict", "none" or "default" to an http.SameSite value.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	default:
		return 0, fmt.Errorf("unknown SameSite mode %q", s)
	}
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
