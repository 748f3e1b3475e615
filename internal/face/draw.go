package face

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"empath/pkg/emotion"
)

var (
	boxColor   = color.RGBA{G: 255}
	voiceColor = color.RGBA{R: 255}
	fusedColor = color.RGBA{R: 255, G: 255}
)

// Annotate draws the detection results onto the frame for the preview
// window: face box with its label, voice label top-left, fused label below.
func Annotate(frame *gocv.Mat, face, voice, fused *emotion.Prediction) {
	if face != nil {
		gocv.Rectangle(frame, face.Box, boxColor, 2)
		text := fmt.Sprintf("Face: %s (%.2f)", face.Label, face.Confidence)
		at := image.Pt(face.Box.Min.X, face.Box.Min.Y-10)
		gocv.PutText(frame, text, at, gocv.FontHersheySimplex, 0.6, boxColor, 2)
	}

	if voice != nil {
		text := fmt.Sprintf("Voice: %s (%.2f)", voice.Label, voice.Confidence)
		gocv.PutText(frame, text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, voiceColor, 2)
	} else {
		gocv.PutText(frame, "Voice: listening", image.Pt(10, 30), gocv.FontHersheySimplex, 0.7,
			color.RGBA{R: 128, G: 128, B: 128}, 2)
	}

	if fused != nil {
		text := fmt.Sprintf("%s (%.2f, %s)", fused.Label, fused.Confidence, fused.Source)
		gocv.PutText(frame, text, image.Pt(10, 70), gocv.FontHersheySimplex, 1.0, fusedColor, 2)
	}
}
