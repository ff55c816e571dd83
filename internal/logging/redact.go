package logging

import (
	"log/slog"
	"strings"
)

// Key names whose values are never logged. Matching is by substring, so
// "signing_secret" and "kek_b64" are covered. Key identifiers ("key_id",
// "active_key") are public and deliberately absent.
var sensitiveKeyPatterns = []string{
	"secret",
	"passphrase",
	"password",
	"kek",
	"cookie",
	"token",
}

// RedactedValue replaces sensitive attribute values.
const RedactedValue = "***REDACTED***"

// Redact returns a, or a copy with its value replaced when the key is sensitive.
// Groups are redacted recursively.
func Redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = Redact(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if !IsSensitiveKey(a.Key) {
		return a
	}
	if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
		return a
	}
	return slog.String(a.Key, RedactedValue)
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
