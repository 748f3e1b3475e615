package voice

import (
	"math"
	"testing"
)

func sine(freq float64, amp float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

// pseudo-noise from a fixed linear congruential sequence, deterministic
// across runs
func noise(amp float64, n int) []float32 {
	out := make([]float32, n)
	state := uint32(12345)
	for i := range out {
		state = state*1664525 + 1013904223
		out[i] = float32(amp * (float64(state)/float64(math.MaxUint32)*2 - 1))
	}
	return out
}

func TestExtractEmpty(t *testing.T) {
	f := Extract(nil)
	if f.Volume != 0 || f.Energy != 0 {
		t.Fatalf("got %+v", f)
	}
}

func TestExtractAmplitude(t *testing.T) {
	f := Extract(sine(440, 0.5, 16000, 16000))

	if f.Volume < 0.49 || f.Volume > 0.51 {
		t.Fatalf("volume=%v", f.Volume)
	}
	// mean square of a sine is amp^2/2
	if math.Abs(f.Energy-0.125) > 0.01 {
		t.Fatalf("energy=%v", f.Energy)
	}
	if math.Abs(f.RMS-math.Sqrt(f.Energy)) > 1e-9 {
		t.Fatalf("rms=%v energy=%v", f.RMS, f.Energy)
	}
}

func TestZeroCrossingsTrackFrequency(t *testing.T) {
	low := Extract(sine(100, 0.5, 16000, 16000))
	high := Extract(sine(2000, 0.5, 16000, 16000))

	if low.ZeroCrossRate >= high.ZeroCrossRate {
		t.Fatalf("low=%v high=%v", low.ZeroCrossRate, high.ZeroCrossRate)
	}
	// a 100 Hz tone at 16 kHz crosses about 200 times per 16000 samples
	if math.Abs(low.ZeroCrossRate-0.0125) > 0.002 {
		t.Fatalf("low zcr=%v", low.ZeroCrossRate)
	}
}

func TestSpectralShapeSeparatesToneFromNoise(t *testing.T) {
	tone := Extract(sine(200, 0.5, 16000, 8192))
	hiss := Extract(noise(0.5, 8192))

	if tone.Centroid >= hiss.Centroid {
		t.Fatalf("tone centroid=%v noise centroid=%v", tone.Centroid, hiss.Centroid)
	}
	if tone.Rolloff >= hiss.Rolloff {
		t.Fatalf("tone rolloff=%v noise rolloff=%v", tone.Rolloff, hiss.Rolloff)
	}
	for _, f := range []Features{tone, hiss} {
		if f.Centroid < 0 || f.Centroid > 1 || f.Rolloff < 0 || f.Rolloff > 1 {
			t.Fatalf("out of range: %+v", f)
		}
	}
}

func TestPitchVariationBounds(t *testing.T) {
	v := Extract(noise(0.5, 4096)).PitchVariation
	if v < 0 || v > 1 {
		t.Fatalf("pitch variation=%v", v)
	}
}

func TestFFTRoundTripImpulse(t *testing.T) {
	// an impulse has a flat magnitude spectrum
	samples := make([]float32, 64)
	samples[0] = 1
	mag := spectrum(samples)

	for i, m := range mag {
		if math.Abs(m-1) > 1e-6 {
			t.Fatalf("bin %d magnitude=%v", i, m)
		}
	}
}
