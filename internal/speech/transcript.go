// Package speech is an optional third signal: the buffered voice window is
// transcribed locally and the transcript is scored by the remote emotion
// service. It only runs when both a whisper model and a service URL are
// configured.
package speech

import (
	"context"
	"fmt"
	"strings"

	"empath/internal/classify"
	"empath/pkg/emotion"
	"empath/pkg/stt"
)

type Config struct {
	ModelPath  string
	ServiceURL string
	Language   string
}

// Enabled reports whether the transcript path is fully configured.
func (c Config) Enabled() bool {
	return c.ModelPath != "" && c.ServiceURL != ""
}

type Analyzer struct {
	tr     *stt.Transcriber
	client *classify.Client
	lang   string
}

func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("transcript analysis not configured")
	}

	tr, err := stt.NewTranscriber(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("init transcriber: %w", err)
	}

	return &Analyzer{
		tr:     tr,
		client: classify.NewClient(cfg.ServiceURL),
		lang:   cfg.Language,
	}, nil
}

func (a *Analyzer) Close() error {
	return a.tr.Close()
}

// Analyze transcribes the window and asks the service what the words sound
// like. Returns nil without error when nothing intelligible was said.
func (a *Analyzer) Analyze(ctx context.Context, pcm16k []float32) (*emotion.Prediction, error) {
	res, err := a.tr.TranscribePCM(ctx, pcm16k, stt.Options{Language: a.lang})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return nil, nil
	}

	scored, err := a.client.DetectText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("score transcript: %w", err)
	}

	return scored.Prediction("voice", "transcript"), nil
}
