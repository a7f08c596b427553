package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Recorder captures mono 16 kHz float32 PCM from the default input device,
// which is the format the transcriber expects.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms frames
)

// CaptureOptions tune the voice-activity endpointing.
type CaptureOptions struct {
	SilenceRMS   float64       // frame RMS below this counts as silence
	TrailSilence time.Duration // stop after this much silence once speech began
	MaxLength    time.Duration // hard cap on the whole capture
}

func (o *CaptureOptions) defaults() {
	if o.SilenceRMS <= 0 {
		o.SilenceRMS = 0.015
	}
	if o.TrailSilence <= 0 {
		o.TrailSilence = 600 * time.Millisecond
	}
	if o.MaxLength <= 0 {
		o.MaxLength = 10 * time.Second
	}
}

// ErrAborted is returned when the capture context is cancelled mid-stream.
var ErrAborted = errors.New("capture aborted")

// Capture records one utterance: it waits for speech to start and stops
// after a trailing stretch of silence or when MaxLength runs out. The
// context is checked every frame, so aborts take effect within ~20ms.
func (r *Recorder) Capture(ctx context.Context, opt CaptureOptions) ([]float32, error) {
	opt.defaults()

	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking     bool
		silentFrames int
	)
	frameDur := 20 * time.Millisecond
	trailFrames := int(opt.TrailSilence / frameDur)
	maxFrames := int(opt.MaxLength / frameDur)

	for i := 0; i < maxFrames; i++ {
		select {
		case <-ctx.Done():
			return nil, ErrAborted
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > opt.SilenceRMS {
			speaking = true
			silentFrames = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silentFrames++
			if silentFrames >= trailFrames {
				break
			}
			out = append(out, buf...)
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
