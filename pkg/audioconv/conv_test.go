package audioconv

import (
	"math"
	"testing"
)

func TestDownmixAveragesChannels(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	mono := downmix(stereo, 2)
	want := []float32{0.5, 0.5, 0}
	if len(mono) != len(want) {
		t.Fatalf("mono=%v", mono)
	}
	for i := range want {
		if math.Abs(float64(mono[i]-want[i])) > 1e-6 {
			t.Fatalf("mono=%v want %v", mono, want)
		}
	}
}

func TestResampleHalvesLength(t *testing.T) {
	in := make([]float32, 320)
	for i := range in {
		in[i] = float32(i)
	}
	out := resample(in, 32000, 16000)
	if len(out) != 160 {
		t.Fatalf("len=%d", len(out))
	}
	// linear interpolation of a ramp stays on the ramp
	if math.Abs(float64(out[10])-20) > 1e-3 {
		t.Fatalf("out[10]=%v", out[10])
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []float32{1, 2, 3}
	out := resample(in, 16000, 16000)
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Fatalf("out=%v", out)
	}
}

func TestInt16Scaling(t *testing.T) {
	out := int16ToFloat32([]int16{0, 16384, -32768})
	if out[0] != 0 || math.Abs(float64(out[1])-0.5) > 1e-6 || out[2] != -1 {
		t.Fatalf("out=%v", out)
	}
}

func TestDecodeFileUnknownFormat(t *testing.T) {
	if _, err := DecodeFile("testdata/nope.flac", Options{}); err == nil {
		t.Fatal("expected error")
	}
}
