package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"empath/internal/voice"
	"empath/pkg/audioconv"
	"empath/pkg/emotion"
)

// empath-analyze runs the voice emotion heuristic over a recording instead
// of the live microphone: decode the file, slide the analysis window over
// it, print per-window predictions and the dominant label.
func main() {
	file := cli.StringP("file", "f", "", "Audio file (wav/mp3/ogg)")
	windowSec := cli.Float64P("window", "w", 3.0, "Analysis window in seconds")
	hopSec := cli.Float64P("hop", "s", 1.0, "Hop between windows in seconds")
	rate := cli.IntP("rate", "r", 16000, "Analysis sample rate")
	cli.Parse()

	in := *file
	if in == "" && cli.NArg() > 0 {
		in = cli.Arg(0)
	}
	if in == "" {
		fmt.Println("usage: empath-analyze [-f] <path/to/audio.(wav|mp3|ogg)>")
		os.Exit(2)
	}

	pcm, err := audioconv.DecodeFile(in, audioconv.Options{TargetRate: *rate})
	if err != nil {
		fmt.Println("decode:", err)
		os.Exit(1)
	}

	window := int(*windowSec * float64(*rate))
	hop := int(*hopSec * float64(*rate))
	if window <= 0 || hop <= 0 {
		fmt.Println("window and hop must be positive")
		os.Exit(2)
	}

	det := voice.NewDetector(voice.Config{})
	counts := map[emotion.Label]int{}
	analyzed := 0

	for start := 0; start < len(pcm); start += hop {
		end := start + window
		if end > len(pcm) {
			end = len(pcm)
		}

		pred := det.Classify(pcm[start:end])
		t := float64(start) / float64(*rate)
		if pred == nil {
			fmt.Printf("%7.2fs  silence\n", t)
		} else {
			fmt.Printf("%7.2fs  %-8s %.2f\n", t, pred.Label, pred.Confidence)
			counts[pred.Label]++
			analyzed++
		}

		if end == len(pcm) {
			break
		}
	}

	if analyzed == 0 {
		fmt.Println("no speech detected")
		return
	}

	var dominant emotion.Label
	best := 0
	for _, l := range emotion.All {
		if counts[l] > best {
			dominant, best = l, counts[l]
		}
	}
	fmt.Printf("\ndominant: %s (%d/%d windows)\n", dominant, best, analyzed)
}
