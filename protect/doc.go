// Package protect implements the two cookie protection strategies.
//
// [Signed] appends a keyed MAC to the visible payload; it provides integrity only.
// [Encrypted] seals the payload with an AEAD cipher under a fresh random nonce; it
// provides integrity and confidentiality.
//
// Both strategies bind the identifier of the key that produced the envelope into the
// authenticated data, so an envelope is only ever accepted under the exact key named in
// it. A [Strategy] is chosen once, when the codec is built, and never changes afterwards.
package protect
