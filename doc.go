// Package goSession carries web session state inside an HTTP cookie, with no
// server-side session store.
//
// A cookie is either signed (the payload is visible but tamper-evident) or encrypted
// (the payload is hidden and tamper-evident). The core pipeline lives in [Codec]:
//
//	Encode: session -> bytes (session.Serializer) -> protected (protect.Strategy, active key) -> text (textenc)
//	Decode: text -> protected -> unprotect (every candidate key) -> expiry check -> session
//
// [Engine] wraps a Codec with key rotation, sliding expiration, metrics, structured
// logging and audit events. Build one with [New]:
//
//	ring, _ := keyring.NewRing(key)
//	engine, err := goSession.New().
//		WithConfig(goSession.DefaultConfig()).
//		WithKeyRing(ring).
//		Build()
//
// # Rejections
//
// Every refused cookie yields a *[RejectionError] matching [ErrRejected]. The kind is
// informational; hosts discard the cookie and continue with a fresh session. Errors
// wrapping [ErrFatal] mean the engine itself is broken (bad key material, exhausted
// entropy) and must surface as server errors.
//
// # Concurrency
//
// Codec and Engine are safe for concurrent use after construction. [Engine.Rotate]
// swaps the key ring atomically; in-flight decodes see one ring or the other.
package goSession
