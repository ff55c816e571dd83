package keyring

import (
	"bytes"
	"errors"
	"testing"
)

func testRing(t *testing.T) *Ring {
	t.Helper()
	ring, err := NewRing(
		mustKey(t, "k1", PurposeEncryption, 1, 32),
		mustKey(t, "k2", PurposeEncryption, 2, 32),
	)
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	return ring
}

func TestSealOpenRoundTrip(t *testing.T) {
	kek := bytes.Repeat([]byte{9}, 32)
	ring := testRing(t)

	blob, err := Seal(ring, kek)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(blob, bytes.Repeat([]byte{2}, 32)) {
		t.Fatal("sealed blob contains plaintext secret")
	}

	opened, err := Open(blob, kek)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.Purpose() != PurposeEncryption || !opened.IsActive("k2") || opened.Len() != 2 {
		t.Fatalf("unexpected ring %v", opened.IDs())
	}
	k1, _ := opened.Lookup("k1")
	if !bytes.Equal(k1.Bytes(), bytes.Repeat([]byte{1}, 32)) {
		t.Fatal("secret mismatch after open")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	kek := bytes.Repeat([]byte{9}, 32)
	blob, err := Seal(testRing(t), kek)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(blob, bytes.Repeat([]byte{8}, 32)); !errors.Is(err, ErrSealedRing) {
		t.Fatalf("expected wrong kek rejection, got %v", err)
	}

	for _, i := range []int{0, 1, 30, len(blob) - 1} {
		mutated := append([]byte(nil), blob...)
		mutated[i] ^= 0x01
		if _, err := Open(mutated, kek); !errors.Is(err, ErrSealedRing) {
			t.Fatalf("byte %d: expected ErrSealedRing, got %v", i, err)
		}
	}

	if _, err := Open(blob[:10], kek); !errors.Is(err, ErrSealedRing) {
		t.Fatalf("expected truncated blob rejection, got %v", err)
	}
	if _, err := Seal(testRing(t), []byte("short")); !errors.Is(err, ErrInvalidKEK) {
		t.Fatalf("expected ErrInvalidKEK, got %v", err)
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	kek := bytes.Repeat([]byte{9}, 32)
	ring := testRing(t)
	a, err := Seal(ring, kek)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := Seal(ring, kek)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same ring must differ")
	}
	if _, err := SealWithRandom(bytes.NewReader(nil), ring, kek); err == nil {
		t.Fatal("expected exhausted nonce source to fail")
	}
}
