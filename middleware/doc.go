// Package middleware connects a goSession.Engine to net/http.
//
// [Sessions] reads the session cookie, decodes it through the engine and installs a
// [State] in the request context. Handlers reach it with [FromContext]. The cookie is
// re-written before the response headers go out when the session changed, is due for
// sliding renewal, or was authenticated by a retired key.
//
// [Cookies] turns a goSession.CookieConfig into Set-Cookie headers and enforces the
// browser rules for SameSite=None, the __Host- and __Secure- prefixes, and the
// 4096-byte cookie limit.
//
// This package holds no codec logic. Every accept or reject decision is the engine's.
package middleware
