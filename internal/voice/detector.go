package voice

import (
	"sync"

	"empath/pkg/emotion"
)

const ModelName = "spectral-heuristic"

// Config tunes the heuristic. Zero values fall back to defaults matching a
// three-second window of 16 kHz speech.
type Config struct {
	// SilenceFloor is the peak amplitude below which a window yields no
	// prediction.
	SilenceFloor float64
	// MinSamples is the shortest window worth analyzing.
	MinSamples int
	// HistorySize bounds the label history used for repetition damping.
	HistorySize int
}

func (c Config) withDefaults() Config {
	if c.SilenceFloor <= 0 {
		c.SilenceFloor = 0.005
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 1000
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 10
	}
	return c
}

// Detector maps audio feature measurements to an emotion label by static
// rules. It keeps a short label history so one label cannot wedge itself in,
// and exposes the latest prediction to the polling loop.
type Detector struct {
	cfg Config

	mu      sync.Mutex
	current *emotion.Prediction
	history []emotion.Label
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Process classifies a window and stores the result as the current voice
// emotion. Windows that are too short or too quiet leave the previous
// prediction in place.
func (d *Detector) Process(window []float32) {
	if p := d.Classify(window); p != nil {
		d.mu.Lock()
		d.current = p
		d.mu.Unlock()
	}
}

// Current returns the most recent voice prediction, nil before any speech
// has been heard.
func (d *Detector) Current() *emotion.Prediction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Classify runs the static scoring rules over one window. It returns nil for
// windows below the silence floor.
func (d *Detector) Classify(window []float32) *emotion.Prediction {
	if len(window) < d.cfg.MinSamples {
		return nil
	}

	f := Extract(window)
	if f.Volume < d.cfg.SilenceFloor {
		return nil
	}

	scores := scoreFeatures(f)
	d.dampRepetition(scores)
	scores.Normalize()

	best, base := scores.Best()

	// Louder, clearer audio earns more confidence, capped well under 1 so
	// the face model can still win fusion.
	boost := f.Volume*2 + f.RMS*1.5
	if boost > 0.3 {
		boost = 0.3
	}
	conf := base + boost
	if conf > 0.92 {
		conf = 0.92
	}

	d.remember(best)

	return &emotion.Prediction{
		Label:      best,
		Confidence: conf,
		Source:     "voice",
		Model:      ModelName,
	}
}

// scoreFeatures applies the fixed rule table: each feature band adds mass to
// the labels it is associated with.
func scoreFeatures(f Features) emotion.Scores {
	s := emotion.Scores{
		emotion.Neutral:  0.15,
		emotion.Happy:    0.14,
		emotion.Sad:      0.13,
		emotion.Angry:    0.12,
		emotion.Surprise: 0.11,
		emotion.Fear:     0.10,
		emotion.Disgust:  0.09,
	}

	// volume
	switch {
	case f.Volume > 0.3:
		s[emotion.Angry] += 0.25
		s[emotion.Surprise] += 0.20
		s[emotion.Happy] += 0.15
	case f.Volume > 0.15:
		s[emotion.Happy] += 0.20
		s[emotion.Neutral] += 0.15
	default:
		s[emotion.Sad] += 0.25
		s[emotion.Fear] += 0.15
		s[emotion.Neutral] += 0.10
	}

	// energy
	if f.Energy > 0.02 {
		s[emotion.Angry] += 0.20
		s[emotion.Happy] += 0.18
		s[emotion.Surprise] += 0.12
	} else if f.Energy < 0.005 {
		s[emotion.Sad] += 0.22
		s[emotion.Fear] += 0.15
	}

	// zero crossings: rough vs. smooth voicing
	if f.ZeroCrossRate > 0.075 {
		s[emotion.Angry] += 0.25
		s[emotion.Disgust] += 0.15
	} else if f.ZeroCrossRate < 0.025 {
		s[emotion.Happy] += 0.20
		s[emotion.Neutral] += 0.10
	}

	// spectral shape: bright vs. dark, banded on the 85% rolloff
	if f.Rolloff > 0.6 {
		s[emotion.Happy] += 0.22
		s[emotion.Surprise] += 0.18
	} else if f.Rolloff < 0.3 {
		s[emotion.Sad] += 0.20
		s[emotion.Fear] += 0.15
	}

	// pitch movement
	if f.PitchVariation > 0.7 {
		s[emotion.Surprise] += 0.25
		s[emotion.Fear] += 0.18
		s[emotion.Happy] += 0.12
	} else if f.PitchVariation < 0.3 {
		s[emotion.Sad] += 0.20
		s[emotion.Neutral] += 0.15
	}

	return s
}

// dampRepetition lowers the score of a label that has dominated the recent
// history so the detector does not get stuck on it.
func (d *Detector) dampRepetition(s emotion.Scores) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.history) < 3 {
		return
	}
	last := d.history[len(d.history)-1]
	count := 0
	for _, l := range d.history {
		if l == last {
			count++
		}
	}
	if count < 2 {
		return
	}

	for k := range s {
		if k == last {
			s[k] *= 0.7
		} else {
			s[k] *= 1.1
		}
	}
}

func (d *Detector) remember(l emotion.Label) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.history = append(d.history, l)
	if len(d.history) > d.cfg.HistorySize {
		d.history = d.history[1:]
	}
}
