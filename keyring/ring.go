package keyring

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRing is returned when a ring would contain no keys.
	ErrEmptyRing = errors.New("key ring is empty")
	// ErrDuplicateKeyID is returned when two keys in one ring share an identifier.
	ErrDuplicateKeyID = errors.New("duplicate key id in ring")
	// ErrMixedPurpose is returned when keys of different purposes are combined.
	ErrMixedPurpose = errors.New("key ring mixes key purposes")
	// ErrKeyNotFound is returned by Without for an unknown identifier.
	ErrKeyNotFound = errors.New("key not found in ring")
)

// Ring is a non-empty, ordered, immutable set of keys sharing one purpose.
//
// Keys are kept in insertion order; the last one is active. A Ring is never modified
// after construction, so it may be read from any number of goroutines.
type Ring struct {
	keys    []Key
	byID    map[string]int
	purpose Purpose
}

// NewRing builds a ring from keys ordered oldest to newest.
func NewRing(keys ...Key) (*Ring, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyRing
	}
	r := &Ring{
		keys:    make([]Key, 0, len(keys)),
		byID:    make(map[string]int, len(keys)),
		purpose: keys[0].purpose,
	}
	for _, k := range keys {
		if k.IsZero() {
			return nil, ErrEmptySecret
		}
		if k.purpose != r.purpose {
			return nil, ErrMixedPurpose
		}
		if _, ok := r.byID[k.id]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKeyID, k.id)
		}
		r.byID[k.id] = len(r.keys)
		r.keys = append(r.keys, k)
	}
	return r, nil
}

// Active returns the key used to protect new cookies.
func (r *Ring) Active() Key {
	return r.keys[len(r.keys)-1]
}

// Candidates returns every key, newest first. The slice is owned by the caller.
func (r *Ring) Candidates() []Key {
	out := make([]Key, len(r.keys))
	for i, k := range r.keys {
		out[len(r.keys)-1-i] = k
	}
	return out
}

// Keys returns every key in insertion order. The slice is owned by the caller.
func (r *Ring) Keys() []Key {
	return append([]Key(nil), r.keys...)
}

// Len returns the number of keys.
func (r *Ring) Len() int { return len(r.keys) }

// Purpose returns the purpose shared by all keys.
func (r *Ring) Purpose() Purpose { return r.purpose }

// Lookup returns the key with the given identifier.
func (r *Ring) Lookup(id string) (Key, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Key{}, false
	}
	return r.keys[i], true
}

// IsActive reports whether id names the active key.
func (r *Ring) IsActive(id string) bool {
	return r.Active().id == id
}

// IDs returns the key identifiers in insertion order.
func (r *Ring) IDs() []string {
	ids := make([]string, len(r.keys))
	for i, k := range r.keys {
		ids[i] = k.id
	}
	return ids
}

// With returns a new ring with key appended as the active key.
func (r *Ring) With(key Key) (*Ring, error) {
	keys := make([]Key, 0, len(r.keys)+1)
	keys = append(keys, r.keys...)
	keys = append(keys, key)
	return NewRing(keys...)
}

// Without returns a new ring that no longer contains id. Removing the last key fails.
func (r *Ring) Without(id string) (*Ring, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	if len(r.keys) == 1 {
		return nil, ErrEmptyRing
	}
	keys := make([]Key, 0, len(r.keys)-1)
	keys = append(keys, r.keys[:i]...)
	keys = append(keys, r.keys[i+1:]...)
	return NewRing(keys...)
}

// Trim returns a new ring holding at most max of the newest keys.
func (r *Ring) Trim(max int) (*Ring, error) {
	if max <= 0 {
		return nil, ErrEmptyRing
	}
	if len(r.keys) <= max {
		return r, nil
	}
	return NewRing(r.keys[len(r.keys)-max:]...)
}
