package common

import (
	"errors"
	"testing"
)

// ---------- GenerateRandBytes ----------

func TestGenerateRandBytes_Basic(t *testing.T) {
	const n = 24
	buf, err := GenerateRandBytes(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != n {
		t.Fatalf("expected length %d, got %d", n, len(buf))
	}
}

func TestGenerateRandBytes_ZeroSize(t *testing.T) {
	buf, err := GenerateRandBytes(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if len(buf) != 0 {
		t.Fatalf("expected empty slice for size=0, got %d bytes", len(buf))
	}
}

func TestGenerateRandBytes_EntropyHint(t *testing.T) {
	const n = 32
	a, _ := GenerateRandBytes(n)
	b, _ := GenerateRandBytes(n)

	if string(a) == string(b) {
		t.Logf("warning: two GenerateRandBytes(%d) results are identical; extremely unlikely", n)
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- errors ----------

func TestTokenErrorsWrapInvalidToken(t *testing.T) {
	for _, err := range []error{ErrInvalidSignature, ErrTokenExpired} {
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%v must wrap ErrInvalidToken", err)
		}
	}
	if errors.Is(ErrInvalidSignature, ErrTokenExpired) {
		t.Fatal("signature and expiry errors must stay distinct")
	}
}
