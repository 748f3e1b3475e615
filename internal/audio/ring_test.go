package audio

import "testing"

func seq(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestRingPartialFill(t *testing.T) {
	r := NewRing(10)
	r.Write(seq(0, 4))

	if r.Len() != 4 {
		t.Fatalf("len=%d", r.Len())
	}
	got := r.Snapshot()
	if len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Fatalf("snapshot=%v", got)
	}
}

func TestRingWrapKeepsNewest(t *testing.T) {
	r := NewRing(5)
	r.Write(seq(0, 3)) // 0 1 2
	r.Write(seq(3, 4)) // wraps: should hold 2 3 4 5 6

	if r.Len() != 5 {
		t.Fatalf("len=%d", r.Len())
	}
	got := r.Snapshot()
	want := []float32{2, 3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot=%v want %v", got, want)
		}
	}
}

func TestRingOversizedChunkKeepsTail(t *testing.T) {
	r := NewRing(4)
	r.Write(seq(0, 10))

	got := r.Snapshot()
	want := []float32{6, 7, 8, 9}
	if len(got) != 4 {
		t.Fatalf("snapshot=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot=%v want %v", got, want)
		}
	}
}

func TestRingExactFill(t *testing.T) {
	r := NewRing(4)
	r.Write(seq(0, 4))

	if r.Len() != 4 {
		t.Fatalf("len=%d", r.Len())
	}
	got := r.Snapshot()
	for i := range got {
		if got[i] != float32(i) {
			t.Fatalf("snapshot=%v", got)
		}
	}
}

func TestRingReset(t *testing.T) {
	r := NewRing(4)
	r.Write(seq(0, 4))
	r.Reset()

	if r.Len() != 0 || len(r.Snapshot()) != 0 {
		t.Fatalf("reset did not clear: len=%d", r.Len())
	}
}
