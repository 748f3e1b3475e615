package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var volumeRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

// Ducker lowers the volume of other playback streams while an announcement
// is being spoken and restores them afterwards. Streams whose
// application.name matches one of selfNames are left alone so the speech
// output itself is never ducked.
type Ducker struct {
	mu        sync.Mutex
	ducked    bool
	selfNames []string
	original  map[int]int
	floor     int
}

func NewDucker(selfNames []string, floor int) *Ducker {
	if floor < 0 {
		floor = 0
	}
	if floor > 100 {
		floor = 100
	}
	return &Ducker{
		selfNames: append([]string(nil), selfNames...),
		original:  make(map[int]int),
		floor:     floor,
	}
}

// Duck scales every foreign stream to current*factor, clamped at the floor.
// A second call while already ducked is a no-op.
func (d *Ducker) Duck(ctx context.Context, factor float64, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked {
		return nil
	}

	streams, err := listSinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	// mark ducked before touching any volume so a mid-fade failure still
	// leaves Restore with work to do
	d.original = make(map[int]int)
	d.ducked = true

	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		target := int(math.Round(float64(s.Volume) * factor))
		if target < d.floor {
			target = d.floor
		}
		d.original[s.ID] = s.Volume
		if err := fadeVolume(ctx, s.ID, s.Volume, target, fade); err != nil {
			return err
		}
	}
	return nil
}

// Restore brings previously ducked streams back to their recorded volume.
// Streams that appeared after Duck are ignored.
func (d *Ducker) Restore(ctx context.Context, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ducked {
		return nil
	}

	streams, err := listSinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok {
			continue
		}
		if err := fadeVolume(ctx, s.ID, s.Volume, orig, fade); err != nil {
			return err
		}
	}

	d.original = make(map[int]int)
	d.ducked = false
	return nil
}

func (d *Ducker) isSelf(s sinkInput) bool {
	for _, name := range d.selfNames {
		if s.AppName == name {
			return true
		}
	}
	return false
}

func fadeVolume(ctx context.Context, id, from, to int, fade time.Duration) error {
	if fade <= 0 || from == to {
		return setSinkInputVolume(ctx, id, to)
	}

	const step = 10 * time.Millisecond
	steps := int(fade / step)
	if steps < 1 {
		steps = 1
	}

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		v := from + (to-from)*i/steps
		if err := setSinkInputVolume(ctx, id, v); err != nil {
			return err
		}
		if i < steps {
			time.Sleep(step)
		}
	}
	return nil
}

// The pactl calls are function variables so tests can run the ducking state
// machine without a sound server.
var listSinkInputs = func(ctx context.Context) ([]sinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(text string) []sinkInput {
	parts := strings.Split(text, "Sink Input #")
	var res []sinkInput

	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := sinkInput{ID: id}
		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := volumeRe.FindStringSubmatch(line); len(m) >= 2 {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			}
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if i := strings.IndexByte(line, '"'); i >= 0 {
					rest := line[i+1:]
					if j := strings.IndexByte(rest, '"'); j >= 0 {
						s.AppName = rest[:j]
					}
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}

var setSinkInputVolume = func(ctx context.Context, id, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	arg := fmt.Sprintf("%d%%", percent)
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}
