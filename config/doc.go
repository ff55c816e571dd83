// Package config loads goSession settings and key material from YAML and the
// environment.
//
// Sources are merged with priority Env > File > Default. Environment variables use the
// GOSESSION_ prefix with "__" separating sections, so GOSESSION_SESSION__TTL=2h sets
// session.ttl and GOSESSION_COOKIE__SAME_SITE=strict sets cookie.same_site.
//
// Keys are listed oldest first; the last one is active. Each key carries either a raw
// secret (base64url) or a passphrase and salt run through scrypt, argon2id or HKDF.
//
// [Watcher] re-reads the file when it changes and rotates a running engine's ring.
package config
