package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"empath/internal/audio"
	"empath/internal/config"
	"empath/internal/face"
	"empath/internal/ipc"
	"empath/internal/loop"
	"empath/internal/notify"
	"empath/internal/speech"
	"empath/internal/stream"
	"empath/internal/tts"
	"empath/internal/voice"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "config.yaml", "Config file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides config)")
	preview := cli.BoolP("preview", "p", false, "Show the annotated preview window")
	cli.Parse()

	godotenv.Load(*envFile)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Pipeline.LogLevel = *logLevel
	}
	if *preview {
		cfg.Video.Preview = true
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[cfg.Pipeline.LogLevel],
	})))

	log.Info("Booting up", "pipeline", cfg.Pipeline.Name)

	capture := audio.NewCapture(audio.CaptureConfig{
		SampleRate:    cfg.Audio.SampleRate,
		ChunkSize:     cfg.Audio.ChunkSize,
		BufferSeconds: cfg.Audio.BufferSeconds,
	})
	if err := capture.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer capture.Close()

	log.Debug("Loaded audio capture")

	faces, err := face.NewDetector(face.Config{
		CascadePath: cfg.Video.Cascade,
		ModelPath:   cfg.Video.Model,
		RemoteURL:   cfg.Video.RemoteURL,
	})
	if err != nil {
		log.Error("Failed to init face detector", "err", err)
		os.Exit(1)
	}
	defer faces.Close()

	log.Debug("Loaded face detector")

	voices := voice.NewDetector(voice.Config{
		SilenceFloor: cfg.Audio.SilenceFloor,
	})

	var speaker tts.Speaker = tts.Engine{Voice: cfg.Speech.Voice, Rate: cfg.Speech.Rate}
	ducker := audio.NewDucker([]string{cfg.Pipeline.Name, "espeak"}, cfg.Speech.DuckFloor)

	announcer := tts.NewAnnouncer(speaker, ducker, tts.Config{
		Interval:       config.DurSeconds(cfg.Speech.IntervalSec),
		FusedThreshold: cfg.Speech.SpeakThreshold,
	})
	if !cfg.Speech.Enabled {
		announcer.Toggle()
	}

	var transcript *speech.Analyzer
	if tc := (speech.Config{
		ModelPath:  cfg.Transcript.Model,
		ServiceURL: cfg.Transcript.ServiceURL,
		Language:   cfg.Transcript.Language,
	}); tc.Enabled() {
		transcript, err = speech.NewAnalyzer(tc)
		if err != nil {
			log.Error("Failed to init transcript analyzer", "err", err)
			os.Exit(1)
		}
		defer transcript.Close()
		log.Debug("Loaded transcript analyzer")
	}

	hub := stream.NewHub()

	runner, err := loop.New(cfg, loop.Deps{
		Face:       faces,
		Voice:      voices,
		Capture:    capture,
		Announcer:  announcer,
		Hub:        hub,
		Transcript: transcript,
	})
	if err != nil {
		log.Error("Failed to open camera", "err", err)
		os.Exit(1)
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ipc.StartServer(controlHandler(stop, announcer, hub)); err != nil {
		log.Error("Failed to start ipc server", "err", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		log.Info("Event stream listening", "addr", cfg.Stream.Listen)
		if err := http.ListenAndServe(cfg.Stream.Listen, mux); err != nil {
			log.Error("Event stream server stopped", "err", err)
		}
	}()

	go func() {
		if err := capture.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Audio capture stopped", "err", err)
		}
	}()
	go announcer.Run(ctx)

	if cfg.Chime != "" {
		if err := notify.Chime(cfg.Chime); err != nil {
			log.Warn("Startup chime failed", "err", err)
		}
	}
	announcer.SayNow(ctx, "Emotion detection system ready")

	log.Info("Boot up - successful")

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("Detection loop failed", "err", err)
		os.Exit(1)
	}

	log.Info("Shutting down")
}

type daemonStatus struct {
	SpeechEnabled bool      `json:"speech_enabled"`
	SpokenCount   int       `json:"spoken_count"`
	LastEmotion   string    `json:"last_emotion,omitempty"`
	LastSpokenAt  time.Time `json:"last_spoken_at"`
	Subscribers   int       `json:"subscribers"`
}

func controlHandler(stop context.CancelFunc, announcer *tts.Announcer, hub *stream.Hub) ipc.Handler {
	return func(msg ipc.ControlMessage) ipc.Response {
		switch msg.Cmd {
		case "toggle-speech":
			on := announcer.Toggle()
			return ipc.Response{OK: true, Detail: fmt.Sprintf("speech enabled: %v", on)}

		case "say":
			if msg.Arg == "" {
				return ipc.Response{OK: false, Detail: "nothing to say"}
			}
			announcer.SayNow(context.Background(), msg.Arg)
			return ipc.Response{OK: true}

		case "status":
			enabled, count, last, at := announcer.Status()
			data, _ := json.Marshal(daemonStatus{
				SpeechEnabled: enabled,
				SpokenCount:   count,
				LastEmotion:   string(last),
				LastSpokenAt:  at,
				Subscribers:   hub.Subscribers(),
			})
			return ipc.Response{OK: true, Detail: string(data)}

		case "stop":
			stop()
			return ipc.Response{OK: true, Detail: "stopping"}

		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Response{OK: false, Detail: "unknown command: " + msg.Cmd}
		}
	}
}
