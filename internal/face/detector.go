package face

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"empath/internal/classify"
	"empath/pkg/emotion"
)

// Config selects the detection cascade and the classifier backend. When
// ModelPath is set the pretrained CNN is loaded through the OpenCV DNN
// module; when RemoteURL is set instead, face crops are sent to the
// classification service. With neither, detected faces fall back to a
// neutral guess.
type Config struct {
	CascadePath string
	ModelPath   string
	RemoteURL   string

	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

func (c Config) withDefaults() Config {
	if c.ScaleFactor <= 1 {
		c.ScaleFactor = 1.1
	}
	if c.MinNeighbors <= 0 {
		c.MinNeighbors = 5
	}
	if c.MinSize <= 0 {
		c.MinSize = 50
	}
	return c
}

// Detector finds the largest face in a frame and classifies its emotion.
type Detector struct {
	cfg     Config
	cascade gocv.CascadeClassifier

	net    gocv.Net
	hasNet bool
	remote *classify.Client
}

func NewDetector(cfg Config) (*Detector, error) {
	cfg = cfg.withDefaults()
	if cfg.CascadePath == "" {
		return nil, errors.New("empty cascade path")
	}

	d := &Detector{cfg: cfg}

	d.cascade = gocv.NewCascadeClassifier()
	if !d.cascade.Load(cfg.CascadePath) {
		d.cascade.Close()
		return nil, fmt.Errorf("load cascade %s", cfg.CascadePath)
	}

	if cfg.ModelPath != "" {
		d.net = gocv.ReadNet(cfg.ModelPath, "")
		if d.net.Empty() {
			d.cascade.Close()
			return nil, fmt.Errorf("load emotion model %s", cfg.ModelPath)
		}
		d.hasNet = true
	} else if cfg.RemoteURL != "" {
		d.remote = classify.NewClient(cfg.RemoteURL)
	}

	return d, nil
}

func (d *Detector) Close() {
	d.cascade.Close()
	if d.hasNet {
		d.net.Close()
	}
}

// Detect returns the emotion of the largest face in the frame, or nil when
// no face is present. Classifier failures degrade to the neutral fallback so
// a bad frame never stalls the loop.
func (d *Detector) Detect(ctx context.Context, frame gocv.Mat) *emotion.Prediction {
	box, ok := d.findLargestFace(frame)
	if !ok {
		return nil
	}

	roi := frame.Region(box)
	defer roi.Close()

	var pred *emotion.Prediction
	var err error
	switch {
	case d.hasNet:
		pred, err = d.classifyLocal(roi)
	case d.remote != nil:
		pred, err = d.classifyRemote(ctx, roi)
	}
	if pred == nil || err != nil {
		pred = &emotion.Prediction{
			Label:      emotion.Neutral,
			Confidence: 0.5,
			Model:      "fallback",
		}
	}

	pred.Source = "face"
	pred.Box = box
	return pred
}

func (d *Detector) findLargestFace(frame gocv.Mat) (image.Rectangle, bool) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	min := image.Pt(d.cfg.MinSize, d.cfg.MinSize)
	faces := d.cascade.DetectMultiScaleWithParams(
		gray, d.cfg.ScaleFactor, d.cfg.MinNeighbors, 0, min, image.Point{})
	if len(faces) == 0 {
		return image.Rectangle{}, false
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Dx()*f.Dy() > best.Dx()*best.Dy() {
			best = f
		}
	}
	return best, true
}

// classifyLocal runs the pretrained CNN over a 64x64 grayscale crop and
// softmaxes the raw scores. The crop comes from the color frame, so it must
// be collapsed to one channel before blobbing; the model takes 1x1x64x64.
func (d *Detector) classifyLocal(roi gocv.Mat) (*emotion.Prediction, error) {
	gray := toGray(roi)
	defer gray.Close()

	blob := gocv.BlobFromImage(gray, 1.0/255.0, image.Pt(64, 64),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	n := out.Total()
	if n < len(emotion.All) {
		return nil, fmt.Errorf("unexpected model output size %d", n)
	}

	raw := make([]float64, len(emotion.All))
	for i := range raw {
		raw[i] = float64(out.GetFloatAt(0, i))
	}
	probs := softmax(raw)

	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}

	return &emotion.Prediction{
		Label:      emotion.All[best],
		Confidence: probs[best],
		Model:      "cnn",
	}, nil
}

func (d *Detector) classifyRemote(ctx context.Context, roi gocv.Mat) (*emotion.Prediction, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, roi)
	if err != nil {
		return nil, fmt.Errorf("encode face crop: %w", err)
	}
	defer buf.Close()

	res, err := d.remote.ClassifyImage(ctx, buf.GetBytes())
	if err != nil {
		return nil, err
	}

	p := res.Prediction("face", "remote")
	if p == nil {
		return nil, fmt.Errorf("service returned unknown label %q", res.DominantEmotion)
	}
	return p, nil
}

// toGray returns a single-channel copy of src. Already-gray input is cloned
// so the caller can always Close the result.
func toGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}

func softmax(raw []float64) []float64 {
	max := raw[0]
	for _, v := range raw[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(raw))
	var sum float64
	for i, v := range raw {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
