// Package loop runs the daemon's polling loop: read a frame, classify face
// and voice, fuse, maybe announce, publish.
package loop

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"empath/internal/audio"
	"empath/internal/config"
	"empath/internal/face"
	"empath/internal/fusion"
	"empath/internal/speech"
	"empath/internal/stream"
	"empath/internal/tts"
	"empath/internal/voice"
	"empath/pkg/emotion"
)

const (
	voiceTick      = 500 * time.Millisecond
	transcriptTick = 5 * time.Second
	transcriptTTL  = 10 * time.Second
	debugEvery     = 3 * time.Second
)

type Deps struct {
	Face      *face.Detector
	Voice     *voice.Detector
	Capture   *audio.Capture
	Announcer *tts.Announcer
	Hub       *stream.Hub
	// Transcript may be nil; when set it contributes a third signal.
	Transcript *speech.Analyzer
}

type Runner struct {
	cfg  *config.Root
	deps Deps
	cam  *gocv.VideoCapture

	mu           sync.Mutex
	transcribed  *emotion.Prediction
	transcribeAt time.Time
}

// New opens the camera. Failure to open it is a boot error, not a runtime
// condition.
func New(cfg *config.Root, deps Deps) (*Runner, error) {
	cam, err := gocv.OpenVideoCapture(cfg.Video.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Video.Device, err)
	}
	cam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Video.Width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Video.Height))

	return &Runner{cfg: cfg, deps: deps, cam: cam}, nil
}

func (r *Runner) Close() {
	r.cam.Close()
}

// Run polls until ctx is cancelled or the preview window is told to quit.
func (r *Runner) Run(ctx context.Context) error {
	go r.voiceLoop(ctx)
	if r.deps.Transcript != nil {
		go r.transcriptLoop(ctx)
	}

	weights := fusion.Weights{
		Face:  r.cfg.Fusion.FaceWeight,
		Voice: r.cfg.Fusion.VoiceWeight,
	}

	frame := gocv.NewMat()
	defer frame.Close()

	var window *gocv.Window
	if r.cfg.Video.Preview {
		window = gocv.NewWindow(r.cfg.Pipeline.Name)
		defer window.Close()
	}

	lastDebug := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ok := r.cam.Read(&frame); !ok || frame.Empty() {
			// camera hiccup: skip the frame
			time.Sleep(10 * time.Millisecond)
			continue
		}

		facePred := r.deps.Face.Detect(ctx, frame)
		voicePred := r.voicePrediction()
		fused := fusion.Fuse(facePred, voicePred, weights)

		r.deps.Announcer.Observe(fused, facePred, voicePred)

		r.deps.Hub.Publish(stream.Event{
			Time:  time.Now(),
			Face:  stream.FromPrediction(facePred),
			Voice: stream.FromPrediction(voicePred),
			Fused: stream.FromPrediction(fused),
		})

		if time.Since(lastDebug) >= debugEvery {
			logState(facePred, voicePred, fused)
			lastDebug = time.Now()
		}

		if window != nil {
			face.Annotate(&frame, facePred, voicePred, fused)
			window.IMShow(frame)
			switch window.WaitKey(1) {
			case 'q':
				return nil
			case 's':
				on := r.deps.Announcer.Toggle()
				log.Info("Speech toggled", "enabled", on)
			}
		}
	}
}

// voicePrediction picks between the spectral heuristic and a fresh
// transcript result, whichever is more confident.
func (r *Runner) voicePrediction() *emotion.Prediction {
	h := r.deps.Voice.Current()

	r.mu.Lock()
	t := r.transcribed
	age := time.Since(r.transcribeAt)
	r.mu.Unlock()

	if t == nil || age > transcriptTTL {
		return h
	}
	if h == nil || t.Confidence > h.Confidence {
		return t
	}
	return h
}

func (r *Runner) voiceLoop(ctx context.Context) {
	ticker := time.NewTicker(voiceTick)
	defer ticker.Stop()

	minSamples := r.cfg.Audio.SampleRate // one second before first analysis

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.deps.Capture.Buffered() < minSamples {
				continue
			}
			r.deps.Voice.Process(r.deps.Capture.Window())
		}
	}
}

func (r *Runner) transcriptLoop(ctx context.Context) {
	ticker := time.NewTicker(transcriptTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			window := r.deps.Capture.Window()
			if len(window) < r.cfg.Audio.SampleRate {
				continue
			}

			tctx, cancel := context.WithTimeout(ctx, transcriptTick)
			pred, err := r.deps.Transcript.Analyze(tctx, window)
			cancel()
			if err != nil {
				log.Warn("Transcript analysis failed", "err", err)
				continue
			}
			if pred == nil {
				continue
			}

			r.mu.Lock()
			r.transcribed = pred
			r.transcribeAt = time.Now()
			r.mu.Unlock()
		}
	}
}

func logState(facePred, voicePred, fused *emotion.Prediction) {
	attr := func(p *emotion.Prediction) string {
		if p == nil {
			return "none"
		}
		return fmt.Sprintf("%s:%.2f", p.Label, p.Confidence)
	}
	log.Info("State", "face", attr(facePred), "voice", attr(voicePred), "fused", attr(fused))
}
