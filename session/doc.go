// Package session defines the cookie session model and its binary serializers.
//
// # Binary encoding
//
// [Binary] is the canonical format: a version byte, the absolute expiry, and a sorted,
// length-prefixed list of key/value entries. [Msgpack] is an alternative wire format with
// the same invariants. Both are deterministic so that signed cookies are reproducible.
//
// Serializers expose [Serializer.ExpiresAt] so expiry can be checked on authenticated
// bytes before the values are materialized.
//
// # What this package must NOT do
//
//   - Import goSession, keyring, or protect (no upward imports).
//   - Perform any cryptographic work; bytes produced here are protected by the caller.
//   - Panic on malformed input; every structural failure wraps [ErrMalformedPayload].
package session
