package conv

import "testing"

func TestUtoa(t *testing.T) {
	cases := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{65535, "65535"},
		{18446744073709551615, "18446744073709551615"},
	}
	for _, tc := range cases {
		var buf [20]byte
		if got := string(Utoa(buf[:], tc.n)); got != tc.want {
			t.Errorf("Utoa(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestUtoaShortBuffer(t *testing.T) {
	var buf [2]byte
	if got := string(Utoa(buf[:], 12345)); got != "45" {
		t.Fatalf("short buffer keeps low digits, got %q", got)
	}
	if got := Utoa(nil, 1); len(got) != 0 {
		t.Fatalf("nil buffer should yield empty slice")
	}
}

func TestAppend(t *testing.T) {
	b := []byte("step=")
	b = AppendU32(b, 4294967295)
	b = append(b, " on="...)
	b = AppendBool(b, true)
	if got := string(b); got != "step=4294967295 on=1" {
		t.Fatalf("got %q", got)
	}
	if U32(0) != "0" {
		t.Fatalf("U32(0) = %q", U32(0))
	}
}
