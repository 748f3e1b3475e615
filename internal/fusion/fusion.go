// Package fusion blends the face and voice predictions into one result by
// comparing their confidence-weighted scores.
package fusion

import "empath/pkg/emotion"

// Weights favor the face model, which is far more accurate than the voice
// heuristic.
type Weights struct {
	Face  float64
	Voice float64
}

var Default = Weights{Face: 0.7, Voice: 0.3}

const (
	// singlePenalty discounts a prediction backed by only one modality.
	singlePenalty = 0.8
	// agreementBonus rewards both modalities naming the same label.
	agreementBonus = 0.2
)

// Fuse combines the two predictions:
//
//   - both missing: nil
//   - one side only: that label, confidence discounted
//   - agreement: that label, weighted confidences plus a bonus, capped at 1
//   - disagreement: the larger weighted score wins outright
func Fuse(face, voice *emotion.Prediction, w Weights) *emotion.Prediction {
	switch {
	case face == nil && voice == nil:
		return nil
	case face == nil:
		return &emotion.Prediction{
			Label:      voice.Label,
			Confidence: voice.Confidence * singlePenalty,
			Source:     "voice_only",
		}
	case voice == nil:
		return &emotion.Prediction{
			Label:      face.Label,
			Confidence: face.Confidence * singlePenalty,
			Source:     "face_only",
		}
	}

	if face.Label == voice.Label {
		conf := face.Confidence*w.Face + voice.Confidence*w.Voice + agreementBonus
		if conf > 1 {
			conf = 1
		}
		return &emotion.Prediction{
			Label:      face.Label,
			Confidence: conf,
			Source:     "agreement",
		}
	}

	faceScore := face.Confidence * w.Face
	voiceScore := voice.Confidence * w.Voice
	if faceScore > voiceScore {
		return &emotion.Prediction{
			Label:      face.Label,
			Confidence: faceScore,
			Source:     "face_dominant",
		}
	}
	return &emotion.Prediction{
		Label:      voice.Label,
		Confidence: voiceScore,
		Source:     "voice_dominant",
	}
}
