package keyring

import "sync/atomic"

// Holder publishes the current ring to concurrent readers.
//
// Load never blocks and always observes a complete ring, either the one before a
// concurrent Store or the one after it.
type Holder struct {
	ring atomic.Pointer[Ring]
}

// NewHolder returns a holder publishing ring.
func NewHolder(ring *Ring) (*Holder, error) {
	if ring == nil {
		return nil, ErrEmptyRing
	}
	h := &Holder{}
	h.ring.Store(ring)
	return h, nil
}

// Load returns the current ring.
func (h *Holder) Load() *Ring {
	return h.ring.Load()
}

// Store replaces the current ring.
func (h *Holder) Store(ring *Ring) error {
	if ring == nil {
		return ErrEmptyRing
	}
	h.ring.Store(ring)
	return nil
}

// Swap replaces the current ring and returns the previous one.
func (h *Holder) Swap(ring *Ring) (*Ring, error) {
	if ring == nil {
		return nil, ErrEmptyRing
	}
	return h.ring.Swap(ring), nil
}

// CompareAndSwap replaces old with ring only if old is still current.
func (h *Holder) CompareAndSwap(old, ring *Ring) bool {
	if ring == nil {
		return false
	}
	return h.ring.CompareAndSwap(old, ring)
}
