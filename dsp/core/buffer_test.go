package core

import "testing"

func TestEnsureLenReusesCapacity(t *testing.T) {
	buf := make([]float64, 1, 8)
	out := EnsureLen(buf, 6)
	if len(out) != 6 || cap(out) != 8 {
		t.Fatalf("len=%d cap=%d, want 6/8", len(out), cap(out))
	}
	if &out[0] != &buf[0] {
		t.Fatal("expected backing array reuse")
	}
}

func TestEnsureLenGrows(t *testing.T) {
	out := EnsureLen(nil, 3)
	if len(out) != 3 {
		t.Fatalf("len=%d, want 3", len(out))
	}
	if got := EnsureLen(out, 0); len(got) != 0 {
		t.Fatalf("len=%d, want 0", len(got))
	}
}

func TestFill(t *testing.T) {
	buf := make([]float64, 4)
	Fill(buf, -130)
	for i, v := range buf {
		if v != -130 {
			t.Fatalf("buf[%d]=%v, want -130", i, v)
		}
	}
}
