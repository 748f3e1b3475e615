package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Video struct {
	Device  int    `yaml:"device"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Cascade string `yaml:"cascade"`
	// Model is an ONNX emotion CNN loaded through the OpenCV DNN module.
	Model string `yaml:"model"`
	// RemoteURL points at an external classification service when no local
	// model is available.
	RemoteURL string `yaml:"remote_url"`
	Preview   bool   `yaml:"preview"`
}

type Audio struct {
	SampleRate    int     `yaml:"sample_rate"`
	ChunkSize     int     `yaml:"chunk_size"`
	BufferSeconds int     `yaml:"buffer_seconds"`
	SilenceFloor  float64 `yaml:"silence_floor"`
}

type Fusion struct {
	FaceWeight  float64 `yaml:"face_weight"`
	VoiceWeight float64 `yaml:"voice_weight"`
}

type Speech struct {
	Enabled        bool    `yaml:"enabled"`
	Voice          string  `yaml:"voice"`
	Rate           int     `yaml:"rate"`
	IntervalSec    float64 `yaml:"interval_sec"`
	SpeakThreshold float64 `yaml:"speak_threshold"`
	DuckFloor      int     `yaml:"duck_floor"`
}

type Stream struct {
	Listen string `yaml:"listen"`
}

type Transcript struct {
	Model      string `yaml:"model"`
	ServiceURL string `yaml:"service_url"`
	Language   string `yaml:"language"`
}

type Root struct {
	Pipeline struct {
		Name     string `yaml:"name"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"pipeline"`
	Video      Video      `yaml:"video"`
	Audio      Audio      `yaml:"audio"`
	Fusion     Fusion     `yaml:"fusion"`
	Speech     Speech     `yaml:"speech"`
	Stream     Stream     `yaml:"stream"`
	Transcript Transcript `yaml:"transcript"`
	Chime      string     `yaml:"chime"`
}

// Defaults mirrors the demo's tuning: 640x480 camera, three seconds of
// 16 kHz audio, face-heavy fusion, two-second speech cooldown.
func Defaults() *Root {
	var c Root
	c.Pipeline.Name = "empath"
	c.Pipeline.LogLevel = "info"

	c.Video = Video{
		Device:  0,
		Width:   640,
		Height:  480,
		Cascade: "models/haarcascade_frontalface_default.xml",
	}
	c.Audio = Audio{
		SampleRate:    16000,
		ChunkSize:     1024,
		BufferSeconds: 3,
		SilenceFloor:  0.005,
	}
	c.Fusion = Fusion{FaceWeight: 0.7, VoiceWeight: 0.3}
	c.Speech = Speech{
		Enabled:        true,
		Voice:          "en",
		Rate:           180,
		IntervalSec:    2.0,
		SpeakThreshold: 0.4,
		DuckFloor:      20,
	}
	c.Stream = Stream{Listen: "127.0.0.1:8093"}
	return &c
}

// Load reads a YAML config over the defaults. A missing file is fine; an
// unreadable or malformed one is not.
func Load(path string) (*Root, error) {
	cfg := Defaults()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if url := os.Getenv("EMPATH_CLASSIFIER_URL"); url != "" {
		cfg.Video.RemoteURL = url
	}
	return cfg, nil
}

func DurSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
