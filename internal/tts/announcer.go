package tts

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"empath/internal/audio"
	"empath/pkg/emotion"
)

// Speaker is the synchronous speech sink the announcer drains into.
type Speaker interface {
	Speak(text string) error
}

// Config tunes the announcement throttle.
type Config struct {
	// Interval is the ordinary cooldown between announcements.
	Interval time.Duration
	// HighConfGap is the minimum gap even for high-confidence results.
	HighConfGap time.Duration
	// FusedThreshold gates fused-label announcements.
	FusedThreshold float64
	// FaceThreshold gates announcements driven by a face label change.
	FaceThreshold float64
	// VoiceThreshold gates announcements driven by a voice label change.
	VoiceThreshold float64
	// HighConfidence is the level that may bypass the ordinary cooldown.
	HighConfidence float64
	QueueSize      int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.HighConfGap <= 0 {
		c.HighConfGap = 500 * time.Millisecond
	}
	if c.FusedThreshold <= 0 {
		c.FusedThreshold = 0.4
	}
	if c.FaceThreshold <= 0 {
		c.FaceThreshold = 0.7
	}
	if c.VoiceThreshold <= 0 {
		c.VoiceThreshold = 0.5
	}
	if c.HighConfidence <= 0 {
		c.HighConfidence = 0.85
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	return c
}

// Announcer decides when a detection result is worth saying out loud and
// speaks queued messages on a single worker goroutine. Other playback
// streams are ducked for the duration of each utterance.
type Announcer struct {
	cfg     Config
	speaker Speaker
	ducker  *audio.Ducker
	now     func() time.Time

	queue chan string

	mu         sync.Mutex
	enabled    bool
	lastSpoken time.Time
	lastFused  emotion.Label
	lastFace   emotion.Label
	lastVoice  emotion.Label
	count      int
}

func NewAnnouncer(speaker Speaker, ducker *audio.Ducker, cfg Config) *Announcer {
	cfg = cfg.withDefaults()
	return &Announcer{
		cfg:     cfg,
		speaker: speaker,
		ducker:  ducker,
		now:     time.Now,
		enabled: true,
		queue:   make(chan string, cfg.QueueSize),
	}
}

// Run drains the queue until ctx is cancelled, then speaks whatever is
// still pending so shutdown does not clip the last announcement.
func (a *Announcer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return
		case msg := <-a.queue:
			a.say(ctx, msg)
		}
	}
}

// flush speaks already-queued messages with a fresh context; the caller's
// context is cancelled by the time it runs.
func (a *Announcer) flush() {
	for {
		select {
		case msg := <-a.queue:
			a.say(context.Background(), msg)
		default:
			return
		}
	}
}

func (a *Announcer) say(ctx context.Context, msg string) {
	if a.ducker != nil {
		if err := a.ducker.Duck(ctx, 0.3, 150*time.Millisecond); err != nil {
			log.Debug("Duck failed", "err", err)
		}
		defer func() {
			if err := a.ducker.Restore(ctx, 150*time.Millisecond); err != nil {
				log.Debug("Unduck failed", "err", err)
			}
		}()
	}

	if err := a.speaker.Speak(msg); err != nil {
		log.Error("Failed to speak", "msg", msg, "err", err)
	}
}

// Observe inspects one loop iteration's results and queues an announcement
// when a trigger fires:
//
//  1. fused label changed with enough confidence
//  2. face label changed with high face confidence
//  3. voice label changed with enough voice confidence
//  4. the interval elapsed and the fused result is confident enough
//  5. very high fused confidence, allowed to bypass the ordinary cooldown
//
// Triggers 1-4 respect the cooldown interval; trigger 5 only the shorter
// high-confidence gap. Nothing ever fires more often than that gap.
func (a *Announcer) Observe(fused, face, voice *emotion.Prediction) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled || fused == nil {
		return
	}

	now := a.now()
	sinceLast := now.Sub(a.lastSpoken)

	var reason string
	cooled := sinceLast >= a.cfg.Interval

	switch {
	case cooled && fused.Label != a.lastFused && fused.Confidence > a.cfg.FusedThreshold:
		reason = "emotion_changed"
	case cooled && face != nil && face.Label != a.lastFace && face.Confidence > a.cfg.FaceThreshold:
		reason = "face_changed"
	case cooled && voice != nil && voice.Label != a.lastVoice && voice.Confidence > a.cfg.VoiceThreshold:
		reason = "voice_changed"
	case cooled && fused.Confidence > a.cfg.FusedThreshold:
		reason = "time_based"
	case fused.Confidence > a.cfg.HighConfidence && sinceLast >= a.cfg.HighConfGap:
		reason = "high_confidence"
	default:
		return
	}

	if face != nil {
		a.lastFace = face.Label
	}
	if voice != nil {
		a.lastVoice = voice.Label
	}

	a.count++
	msg := a.phrase(fused.Label, reason)

	select {
	case a.queue <- msg:
	default:
		// full queue: drop the oldest pending message in favor of the new one
		select {
		case <-a.queue:
		default:
		}
		select {
		case a.queue <- msg:
		default:
		}
	}

	a.lastFused = fused.Label
	a.lastSpoken = now

	log.Debug("Queued announcement", "msg", msg, "reason", reason, "count", a.count)
}

var rotation = []string{
	"%s",
	"%s detected",
	"Emotion %s",
	"%s emotion",
	"Current emotion %s",
	"Feeling %s",
	"I see %s",
	"%s expression",
}

func (a *Announcer) phrase(label emotion.Label, reason string) string {
	switch reason {
	case "face_changed":
		return fmt.Sprintf("Face shows %s", label)
	case "voice_changed":
		return fmt.Sprintf("Voice shows %s", label)
	case "high_confidence":
		return fmt.Sprintf("Strong %s", label)
	}
	return fmt.Sprintf(rotation[a.count%len(rotation)], label)
}

// SayNow speaks immediately, bypassing both queue and throttle. Used for the
// startup banner and control-channel test requests.
func (a *Announcer) SayNow(ctx context.Context, text string) {
	a.say(ctx, text)
}

// Toggle flips speech output and returns the new state.
func (a *Announcer) Toggle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = !a.enabled
	return a.enabled
}

func (a *Announcer) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Status reports the announcer state for the control channel.
func (a *Announcer) Status() (enabled bool, count int, last emotion.Label, lastSpoken time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled, a.count, a.lastFused, a.lastSpoken
}
