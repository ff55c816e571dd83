package goSession

import (
	"net/http"
	"time"
)

// LintSeverity ranks a LintWarning.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return "unknown"
	}
}

// LintWarning flags a setting that is valid but likely a mistake in production.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings produced by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// AtLeast returns the warnings with severity >= min.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports settings that pass Validate but weaken the deployment. It never fails.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Mode == ModeSigned {
		add("payload_visible", LintInfo, "signed cookies expose session values to the client; use ModeEncrypted for confidential data")
	}
	if !c.Cookie.Secure {
		add("cookie_not_secure", LintHigh, "cookie is sent over plain HTTP")
	}
	if !c.Cookie.HTTPOnly {
		add("cookie_script_readable", LintWarn, "cookie is readable from JavaScript")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode {
		add("samesite_none", LintWarn, "SameSite=None sends the cookie on cross-site requests")
	}
	if c.Session.TTL > 7*24*time.Hour {
		add("ttl_long", LintWarn, "session TTL exceeds 7 days; stolen cookies stay valid that long")
	}
	if !c.Session.SlidingExpiration && c.Session.TTL > 24*time.Hour {
		add("fixed_ttl_long", LintInfo, "fixed expiry longer than a day without sliding renewal")
	}
	if c.Session.SlidingExpiration && c.Session.RenewWindow > 0 && c.Session.RenewWindow < c.Session.TTL/10 {
		add("renew_window_small", LintInfo, "renew window under 10% of TTL; active users may see expiry")
	}
	if c.Session.MaxCookieSize > 0 && c.Session.MaxCookieSize < 256 {
		add("cookie_size_small", LintWarn, "max cookie size leaves little room for session values")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "rejections and key rotations are not audited")
	}
	return ws
}
