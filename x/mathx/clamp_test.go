package mathx

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{5, 1, 10, 5},
		{-3, 1, 10, 1},
		{42, 1, 10, 10},
		{42, 10, 1, 10}, // swapped bounds
	}
	for _, tc := range cases {
		if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestNarrow(t *testing.T) {
	if got := Narrow[uint16](uint32(70000), math.MaxUint16); got != math.MaxUint16 {
		t.Fatalf("Narrow saturate = %d", got)
	}
	if got := Narrow[uint16](uint32(1234), math.MaxUint16); got != 1234 {
		t.Fatalf("Narrow passthrough = %d", got)
	}
	if got := Narrow[uint8](uint64(300), 200); got != 200 {
		t.Fatalf("Narrow custom limit = %d", got)
	}
}
