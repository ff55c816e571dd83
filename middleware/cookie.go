package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// MaxCookieBytes bounds name plus value, the size every browser is required to store.
const MaxCookieBytes = 4096

const (
	hostPrefix   = "__Host-"
	securePrefix = "__Secure-"
)

var (
	// ErrCookieTooLarge is returned when name plus value exceed MaxCookieBytes.
	ErrCookieTooLarge = errors.New("cookie exceeds 4096 bytes")
	// ErrInsecureCookie is returned when the attributes violate a browser security rule.
	ErrInsecureCookie = errors.New("cookie attributes rejected")
)

// CookieWriter writes cookies to an HTTP response.
type CookieWriter interface {
	WriteCookie(cookie *http.Cookie)
}

// ResponseCookieWriter implements CookieWriter using http.SetCookie.
type ResponseCookieWriter struct {
	writer http.ResponseWriter
}

// NewResponseCookieWriter returns a CookieWriter bound to w.
func NewResponseCookieWriter(w http.ResponseWriter) *ResponseCookieWriter {
	return &ResponseCookieWriter{writer: w}
}

// WriteCookie writes the cookie using http.SetCookie.
func (w *ResponseCookieWriter) WriteCookie(cookie *http.Cookie) {
	http.SetCookie(w.writer, cookie)
}

// Cookies builds the session cookie from a goSession.CookieConfig.
type Cookies struct {
	cfg  goSession.CookieConfig
	name string
	now  func() time.Time
}

// NewCookies returns a Cookies for cfg. now stamps Expires; nil uses time.Now.
func NewCookies(cfg goSession.CookieConfig, now func() time.Time) *Cookies {
	if now == nil {
		now = time.Now
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Cookies{cfg: cfg, name: cfg.CookieName(), now: now}
}

// Name returns the cookie name including any prefix.
func (c *Cookies) Name() string { return c.name }

// Read returns the session cookie value from r, or "" when absent.
func (c *Cookies) Read(r *http.Request) string {
	ck, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Build returns the Set-Cookie for value expiring at expiresAt.
func (c *Cookies) Build(value string, expiresAt time.Time) (*http.Cookie, error) {
	if len(c.name)+len(value) > MaxCookieBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrCookieTooLarge, len(c.name)+len(value))
	}
	if err := c.check(); err != nil {
		return nil, err
	}

	ck := c.base()
	ck.Value = value
	if !expiresAt.IsZero() {
		ck.Expires = expiresAt.UTC()
		if maxAge := int(expiresAt.Sub(c.now()) / time.Second); maxAge > 0 {
			ck.MaxAge = maxAge
		} else {
			ck.MaxAge = -1
		}
	}
	return ck, nil
}

// Expired returns the Set-Cookie that removes the session cookie from the browser.
func (c *Cookies) Expired() *http.Cookie {
	ck := c.base()
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0).UTC()
	return ck
}

// Set writes value to w.
func (c *Cookies) Set(w CookieWriter, value string, expiresAt time.Time) error {
	ck, err := c.Build(value, expiresAt)
	if err != nil {
		return err
	}
	w.WriteCookie(ck)
	return nil
}

// Clear writes the expiring cookie to w.
func (c *Cookies) Clear(w CookieWriter) {
	w.WriteCookie(c.Expired())
}

func (c *Cookies) base() *http.Cookie {
	return &http.Cookie{
		Name:        c.name,
		Path:        c.cfg.Path,
		Domain:      c.cfg.Domain,
		Secure:      c.cfg.Secure,
		HttpOnly:    c.cfg.HTTPOnly,
		SameSite:    c.cfg.SameSite,
		Partitioned: c.cfg.Partitioned,
	}
}

func (c *Cookies) check() error {
	if c.cfg.SameSite == http.SameSiteNoneMode && !c.cfg.Secure {
		return fmt.Errorf("%w: SameSite=None requires Secure", ErrInsecureCookie)
	}
	switch {
	case strings.HasPrefix(c.name, hostPrefix):
		if !c.cfg.Secure || c.cfg.Domain != "" || c.cfg.Path != "/" {
			return fmt.Errorf("%w: %s requires Secure, Path=/ and no Domain", ErrInsecureCookie, hostPrefix)
		}
	case strings.HasPrefix(c.name, securePrefix):
		if !c.cfg.Secure {
			return fmt.Errorf("%w: %s requires Secure", ErrInsecureCookie, securePrefix)
		}
	}
	return nil
}
