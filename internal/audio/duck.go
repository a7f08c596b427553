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

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type streamInfo struct {
	ID      int
	Volume  int
	AppName string
}

type fadeTarget struct {
	id   int
	from int
	to   int
}

// Ducker fades down every other PulseAudio playback stream while the
// assistant is speaking or listening, so background media is neither
// captured as an answer nor talked over. Streams whose application.name is
// in ownNames are left alone.
type Ducker struct {
	mu       sync.Mutex
	active   bool
	ownNames []string
	restore  map[int]int // stream id -> volume % before ducking
	floor    int         // lowest volume a foreign stream is faded to
}

func NewDucker(ownNames []string, floor int) *Ducker {
	if floor < 0 {
		floor = 0
	}
	if floor > 150 {
		floor = 150
	}
	return &Ducker{
		ownNames: append([]string(nil), ownNames...),
		restore:  make(map[int]int),
		floor:    floor,
	}
}

// Duck fades foreign streams to current*factor, not below the floor. Calling
// it while already ducked is a no-op.
func (d *Ducker) Duck(ctx context.Context, factor float64, over time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	d.restore = make(map[int]int)
	var targets []fadeTarget

	for _, s := range streams {
		if d.isOwn(s) {
			continue
		}
		to := float64(s.Volume) * factor
		if to < float64(d.floor) {
			to = float64(d.floor)
		}
		if to > 150 {
			to = 150
		}
		d.restore[s.ID] = s.Volume
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: int(math.Round(to))})
	}

	if len(targets) > 0 {
		if err := fade(ctx, targets, over); err != nil {
			return err
		}
	}
	d.active = true
	return nil
}

// Unduck fades foreign streams back to the volumes captured by Duck.
// Streams that appeared after ducking are left untouched.
func (d *Ducker) Unduck(ctx context.Context, over time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	var targets []fadeTarget
	for _, s := range streams {
		if d.isOwn(s) {
			continue
		}
		orig, ok := d.restore[s.ID]
		if !ok {
			continue
		}
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: orig})
	}

	if len(targets) > 0 {
		if err := fade(ctx, targets, over); err != nil {
			return err
		}
	}
	d.restore = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isOwn(s streamInfo) bool {
	for _, name := range d.ownNames {
		if s.AppName == name {
			return true
		}
	}
	return false
}

// fade steps every target from its current volume to its goal over the
// given duration, 10ms per step at minimum.
func fade(ctx context.Context, targets []fadeTarget, over time.Duration) error {
	if over <= 0 {
		for _, t := range targets {
			if err := setStreamVolume(ctx, t.id, t.to); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}
		return nil
	}

	const minStep = 10 * time.Millisecond
	steps := int(over / minStep)
	if steps < 1 {
		steps = 1
	}
	stepDur := over / time.Duration(steps)

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := float64(t.from) + float64(t.to-t.from)*frac
			if err := setStreamVolume(ctx, t.id, int(math.Round(v))); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}
		if i < steps {
			time.Sleep(stepDur)
		}
	}
	return nil
}

// --- pactl plumbing ---

func listStreams(ctx context.Context) ([]streamInfo, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	parts := strings.Split(string(out), "Sink Input #")
	if len(parts) <= 1 {
		return nil, nil
	}

	var res []streamInfo
	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := streamInfo{ID: id}
		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						s.Volume = v
					}
				}
			}

			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if open := strings.Index(line, `"`); open >= 0 {
					rest := line[open+1:]
					if close := strings.Index(rest, `"`); close >= 0 {
						s.AppName = rest[:close]
					}
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}
	return res, nil
}

func setStreamVolume(ctx context.Context, id, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 150 {
		percent = 150
	}
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume",
		strconv.Itoa(id), fmt.Sprintf("%d%%", percent)).Run()
}
