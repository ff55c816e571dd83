package keyring

import (
	"errors"
	"sync"
	"testing"
)

func TestNewRingRejectsInvalidSets(t *testing.T) {
	a := mustKey(t, "a", PurposeSigning, 1, 32)
	b := mustKey(t, "b", PurposeEncryption, 2, 32)

	if _, err := NewRing(); !errors.Is(err, ErrEmptyRing) {
		t.Fatalf("expected ErrEmptyRing, got %v", err)
	}
	if _, err := NewRing(a, a); !errors.Is(err, ErrDuplicateKeyID) {
		t.Fatalf("expected ErrDuplicateKeyID, got %v", err)
	}
	if _, err := NewRing(a, b); !errors.Is(err, ErrMixedPurpose) {
		t.Fatalf("expected ErrMixedPurpose, got %v", err)
	}
	if _, err := NewRing(Key{}); err == nil {
		t.Fatal("expected zero key to be rejected")
	}
}

func TestRingOrdering(t *testing.T) {
	k1 := mustKey(t, "k1", PurposeSigning, 1, 32)
	k2 := mustKey(t, "k2", PurposeSigning, 2, 32)
	k3 := mustKey(t, "k3", PurposeSigning, 3, 32)

	ring, err := NewRing(k1, k2)
	if err != nil {
		t.Fatalf("new ring: %v", err)
	}
	if ring.Active().ID() != "k2" {
		t.Fatalf("expected k2 active, got %s", ring.Active().ID())
	}

	rotated, err := ring.With(k3)
	if err != nil {
		t.Fatalf("with: %v", err)
	}
	if ring.Len() != 2 {
		t.Fatal("With must not modify the original ring")
	}
	if !rotated.IsActive("k3") || rotated.Len() != 3 {
		t.Fatalf("unexpected rotated ring %v", rotated.IDs())
	}

	cands := rotated.Candidates()
	if cands[0].ID() != "k3" || cands[1].ID() != "k2" || cands[2].ID() != "k1" {
		t.Fatalf("candidates not newest first: %v %v %v", cands[0].ID(), cands[1].ID(), cands[2].ID())
	}
	cands[0] = k1
	if rotated.Active().ID() != "k3" {
		t.Fatal("Candidates must return a fresh slice")
	}

	if _, ok := rotated.Lookup("k1"); !ok {
		t.Fatal("expected k1 lookup to succeed")
	}
	if _, ok := rotated.Lookup("missing"); ok {
		t.Fatal("expected missing lookup to fail")
	}

	if _, err := rotated.With(k1); !errors.Is(err, ErrDuplicateKeyID) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestRingWithoutAndTrim(t *testing.T) {
	k1 := mustKey(t, "k1", PurposeSigning, 1, 32)
	k2 := mustKey(t, "k2", PurposeSigning, 2, 32)
	k3 := mustKey(t, "k3", PurposeSigning, 3, 32)
	ring, err := NewRing(k1, k2, k3)
	if err != nil {
		t.Fatalf("new ring: %v", err)
	}

	retired, err := ring.Without("k1")
	if err != nil {
		t.Fatalf("without: %v", err)
	}
	if ids := retired.IDs(); len(ids) != 2 || ids[0] != "k2" || ids[1] != "k3" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if _, err := ring.Without("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	single, err := NewRing(k1)
	if err != nil {
		t.Fatalf("new ring: %v", err)
	}
	if _, err := single.Without("k1"); !errors.Is(err, ErrEmptyRing) {
		t.Fatalf("expected ErrEmptyRing, got %v", err)
	}

	trimmed, err := ring.Trim(1)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if trimmed.Len() != 1 || !trimmed.IsActive("k3") {
		t.Fatalf("unexpected trimmed ring %v", trimmed.IDs())
	}
}

func TestHolderConcurrentSwap(t *testing.T) {
	r1, err := NewRing(mustKey(t, "k1", PurposeSigning, 1, 32))
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	r2, err := r1.With(mustKey(t, "k2", PurposeSigning, 2, 32))
	if err != nil {
		t.Fatalf("ring: %v", err)
	}

	h, err := NewHolder(r1)
	if err != nil {
		t.Fatalf("holder: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r := h.Load()
				if r != r1 && r != r2 {
					t.Error("observed unknown ring")
					return
				}
				if r.Len() == 0 {
					t.Error("observed empty ring")
					return
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			_ = h.Store(r2)
		} else {
			_ = h.Store(r1)
		}
	}
	wg.Wait()

	old, err := h.Swap(r2)
	if err != nil || (old != r1 && old != r2) {
		t.Fatalf("unexpected swap result %v %v", old, err)
	}
	if err := h.Store(nil); !errors.Is(err, ErrEmptyRing) {
		t.Fatalf("expected nil ring rejection, got %v", err)
	}
	if !h.CompareAndSwap(r2, r1) || h.Load() != r1 {
		t.Fatal("expected compare and swap to succeed")
	}
	if h.CompareAndSwap(r2, r1) {
		t.Fatal("expected stale compare and swap to fail")
	}
}
