package emotion

import (
	"math"
	"testing"
)

func TestScoresBest(t *testing.T) {
	s := Scores{Happy: 0.2, Angry: 0.5, Sad: 0.3}
	label, val := s.Best()
	if label != Angry || val != 0.5 {
		t.Fatalf("best=%s %v", label, val)
	}
}

func TestScoresBestTieIsStable(t *testing.T) {
	s := Scores{Sad: 0.4, Happy: 0.4}
	// happy precedes sad in All
	if label, _ := s.Best(); label != Happy {
		t.Fatalf("best=%s", label)
	}
}

func TestScoresBestEmpty(t *testing.T) {
	label, val := Scores{}.Best()
	if label != Neutral || val != 0 {
		t.Fatalf("best=%s %v", label, val)
	}
}

func TestScoresNormalize(t *testing.T) {
	s := Scores{Happy: 1, Sad: 3}
	s.Normalize()
	if math.Abs(s[Happy]-0.25) > 1e-9 || math.Abs(s[Sad]-0.75) > 1e-9 {
		t.Fatalf("normalized=%v", s)
	}

	total := 0.0
	for _, v := range s {
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Fatalf("total=%v", total)
	}
}

func TestValid(t *testing.T) {
	for _, l := range All {
		if !Valid(l) {
			t.Fatalf("%s should be valid", l)
		}
	}
	if Valid("bored") {
		t.Fatal("bored is not a known label")
	}
}
