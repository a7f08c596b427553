// Package device implements the speech capabilities on local hardware:
// microphone capture with voice-activity endpointing, whisper.cpp
// recognition, and espeak-ng synthesis. It is the in-process alternative
// to the websocket bus collaborator.
package device

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"alive/internal/audio"
	"alive/pkg/audioconv"
	"alive/pkg/stt"
)

// recognitionPrompt biases whisper toward the vocabulary the intake steps
// actually expect.
const recognitionPrompt = "yes no normal elevated high above low"

// Recognizer captures and transcribes one utterance per Listen call.
type Recognizer struct {
	rec    *audio.Recorder
	tr     *stt.Transcriber
	ducker *audio.Ducker

	mu    sync.Mutex
	abort context.CancelFunc
}

func NewRecognizer(modelPath string) (*Recognizer, error) {
	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		return nil, fmt.Errorf("init audio: %w", err)
	}

	tr, err := stt.NewTranscriber(modelPath)
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("init whisper: %w", err)
	}

	return &Recognizer{
		rec:    rec,
		tr:     tr,
		ducker: audio.NewDucker([]string{"alive"}, 20),
	}, nil
}

func (r *Recognizer) Close() error {
	r.Abort()
	err := r.tr.Close()
	r.rec.Close()
	return err
}

// Listen records until trailing silence, then transcribes. Other playback
// streams are ducked for the duration so music is not captured as an
// answer.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.abort = cancel
	r.mu.Unlock()

	if err := r.ducker.Duck(ctx, 0.3, 150*time.Millisecond); err != nil {
		log.Debug("duck failed", "err", err)
	}
	defer func() {
		if err := r.ducker.Unduck(context.Background(), 150*time.Millisecond); err != nil {
			log.Debug("unduck failed", "err", err)
		}
	}()

	pcm, err := r.rec.Capture(ctx, audio.CaptureOptions{})
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", fmt.Errorf("heard nothing")
	}

	tctx, tcancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer tcancel()

	return r.tr.Transcribe(tctx, pcm, stt.Options{Prompt: recognitionPrompt})
}

// Abort cancels an in-flight capture; the pending Listen returns ErrAborted.
func (r *Recognizer) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abort != nil {
		r.abort()
		r.abort = nil
	}
}

// TranscribeFile decodes an audio file and runs it through the recognizer,
// used by the ctl transcribe command and for replaying recorded sessions.
func (r *Recognizer) TranscribeFile(ctx context.Context, path string) (string, error) {
	pcm, err := audioconv.DecodeFile(path, audioconv.Options{MaxDuration: 60})
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return r.tr.Transcribe(ctx, pcm, stt.Options{})
}
