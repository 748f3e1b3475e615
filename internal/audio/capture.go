package audio

import (
	"context"
	"fmt"
	"math"

	"github.com/gordonklaus/portaudio"
)

// CaptureConfig describes the microphone stream. Samples are mono float32.
type CaptureConfig struct {
	SampleRate    int
	ChunkSize     int
	BufferSeconds int
}

func (c CaptureConfig) withDefaults() CaptureConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
	if c.BufferSeconds <= 0 {
		c.BufferSeconds = 3
	}
	return c
}

// Capture reads the default input device into a rolling ring buffer. One
// goroutine owns the portaudio stream; readers take snapshots of the ring.
type Capture struct {
	cfg  CaptureConfig
	ring *Ring
}

func NewCapture(cfg CaptureConfig) *Capture {
	cfg = cfg.withDefaults()
	return &Capture{
		cfg:  cfg,
		ring: NewRing(cfg.SampleRate * cfg.BufferSeconds),
	}
}

func (c *Capture) Init() error {
	return portaudio.Initialize()
}

func (c *Capture) Close() {
	portaudio.Terminate()
}

// Window returns the buffered samples, oldest first.
func (c *Capture) Window() []float32 { return c.ring.Snapshot() }

// Buffered reports how many samples the ring currently holds.
func (c *Capture) Buffered() int { return c.ring.Len() }

// Run blocks reading the microphone until ctx is cancelled.
func (c *Capture) Run(ctx context.Context) error {
	buf := make([]float32, c.cfg.ChunkSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.cfg.SampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return fmt.Errorf("read input stream: %w", err)
		}
		c.ring.Write(buf)
	}
}

// RMS is the root-mean-square level of a chunk, used as a cheap loudness
// measure by callers that only need a level meter.
func RMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(f)))
}
