package common

import (
	"encoding/hex"
	"testing"
)

func TestMakeRandHexString_Length(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1, 16, 32} {
		s, err := MakeRandHexString(size)
		if err != nil {
			t.Fatalf("MakeRandHexString(%d) error: %v", size, err)
		}
		if len(s) != size*2 {
			t.Fatalf("length mismatch: got %d want %d", len(s), size*2)
		}
		if _, err := hex.DecodeString(s); err != nil {
			t.Fatalf("not valid hex: %q", s)
		}
	}
}

func TestMakeRandHexString_Unique(t *testing.T) {
	t.Parallel()

	a, err := MakeRandHexString(32)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	b, err := MakeRandHexString(32)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if a == b {
		t.Fatalf("two generated tokens are identical: %q", a)
	}
}
