// Package keyring holds the secret key material used to protect session cookies.
//
// A [Ring] is an immutable, ordered set of keys for one purpose. The last key added is
// active and protects every new cookie; older keys stay in the ring so cookies they
// protected keep validating until they are removed. Rotation builds a new ring with
// [Ring.With] and publishes it through a [Holder], which readers load atomically.
//
// Key secrets never leave the process in plaintext: [Key] redacts itself in every
// formatting and marshaling path, and rings are distributed only in sealed form
// ([Seal], [Open], [Distributor]).
package keyring
