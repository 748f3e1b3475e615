package voice

import (
	"testing"

	"empath/pkg/emotion"
)

func TestClassifyQuietWindowYieldsNothing(t *testing.T) {
	d := NewDetector(Config{})
	if p := d.Classify(sine(200, 0.001, 16000, 16000)); p != nil {
		t.Fatalf("expected nil for silence, got %+v", p)
	}
}

func TestClassifyShortWindowYieldsNothing(t *testing.T) {
	d := NewDetector(Config{})
	if p := d.Classify(sine(200, 0.5, 16000, 100)); p != nil {
		t.Fatalf("expected nil for short window, got %+v", p)
	}
}

func TestClassifySpeechLevelAudio(t *testing.T) {
	d := NewDetector(Config{})
	p := d.Classify(noise(0.4, 16000))
	if p == nil {
		t.Fatal("expected a prediction")
	}
	if !emotion.Valid(p.Label) {
		t.Fatalf("label=%q", p.Label)
	}
	if p.Confidence <= 0 || p.Confidence > 0.92 {
		t.Fatalf("confidence=%v outside (0, 0.92]", p.Confidence)
	}
	if p.Source != "voice" || p.Model != ModelName {
		t.Fatalf("got %+v", p)
	}
}

func TestClassifyIsDeterministicForSameWindow(t *testing.T) {
	window := noise(0.4, 16000)

	a := NewDetector(Config{}).Classify(window)
	b := NewDetector(Config{}).Classify(window)
	if a == nil || b == nil {
		t.Fatal("expected predictions")
	}
	if a.Label != b.Label || a.Confidence != b.Confidence {
		t.Fatalf("a=%+v b=%+v", a, b)
	}
}

func TestScoreFeaturesBrightBandsOnRolloffAlone(t *testing.T) {
	base := Features{
		Volume:         0.2,
		Energy:         0.01,
		RMS:            0.1,
		ZeroCrossRate:  0.05,
		PitchVariation: 0.5,
	}

	// bright window: rolloff past the band even though the centroid sits low,
	// as with a strong low tone plus a weak high one
	bright := base
	bright.Rolloff = 0.625
	bright.Centroid = 0.16

	mid := base
	mid.Rolloff = 0.5
	mid.Centroid = 0.16

	sb := scoreFeatures(bright)
	sm := scoreFeatures(mid)
	if sb[emotion.Happy] <= sm[emotion.Happy] || sb[emotion.Surprise] <= sm[emotion.Surprise] {
		t.Fatalf("bright boost missing: bright=%v mid=%v", sb, sm)
	}

	dark := base
	dark.Rolloff = 0.25
	sd := scoreFeatures(dark)
	if sd[emotion.Sad] <= sm[emotion.Sad] || sd[emotion.Fear] <= sm[emotion.Fear] {
		t.Fatalf("dark boost missing: dark=%v mid=%v", sd, sm)
	}
}

func TestProcessUpdatesCurrent(t *testing.T) {
	d := NewDetector(Config{})
	if d.Current() != nil {
		t.Fatal("expected nil before any audio")
	}

	d.Process(noise(0.4, 16000))
	first := d.Current()
	if first == nil {
		t.Fatal("expected a prediction after Process")
	}

	// silence must not erase the last prediction
	d.Process(sine(200, 0.001, 16000, 16000))
	if got := d.Current(); got != first {
		t.Fatalf("silence replaced prediction: %+v", got)
	}
}

func TestRepetitionDampingLowersStuckLabel(t *testing.T) {
	d := NewDetector(Config{})
	window := noise(0.4, 16000)

	// prime the history with the same window several times
	var label emotion.Label
	for i := 0; i < 4; i++ {
		p := d.Classify(window)
		if p == nil {
			t.Fatal("expected a prediction")
		}
		label = p.Label
	}

	f := Extract(window)
	undamped := scoreFeatures(f)
	undamped.Normalize()

	damped := scoreFeatures(f)
	d.dampRepetition(damped)
	damped.Normalize()

	if damped[label] >= undamped[label] {
		t.Fatalf("damping had no effect: damped=%v undamped=%v", damped[label], undamped[label])
	}
}
