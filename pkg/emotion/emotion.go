package emotion

import "image"

// Label is one of the seven canonical emotion classes shared by the face
// model and the voice heuristic.
type Label string

const (
	Angry    Label = "angry"
	Disgust  Label = "disgust"
	Fear     Label = "fear"
	Happy    Label = "happy"
	Neutral  Label = "neutral"
	Sad      Label = "sad"
	Surprise Label = "surprise"
)

// All lists the labels in the order the face model emits its scores.
var All = []Label{Angry, Disgust, Fear, Happy, Neutral, Sad, Surprise}

func Valid(l Label) bool {
	for _, k := range All {
		if k == l {
			return true
		}
	}
	return false
}

// Prediction is a single classifier result. Box is only meaningful for face
// predictions (zero rectangle otherwise).
type Prediction struct {
	Label      Label
	Confidence float64
	Source     string
	Model      string
	Box        image.Rectangle
}

// Scores holds per-label mass, not necessarily normalized.
type Scores map[Label]float64

// Best returns the label with the highest score. Ties resolve to the label
// that comes first in All so the result is stable.
func (s Scores) Best() (Label, float64) {
	best := Neutral
	val := -1.0
	for _, l := range All {
		if v, ok := s[l]; ok && v > val {
			best, val = l, v
		}
	}
	if val < 0 {
		return Neutral, 0
	}
	return best, val
}

// Normalize scales the scores so they sum to one. A zero-sum map is left
// untouched.
func (s Scores) Normalize() {
	total := 0.0
	for _, v := range s {
		total += v
	}
	if total <= 0 {
		return
	}
	for k := range s {
		s[k] /= total
	}
}
