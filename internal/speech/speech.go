// Package speech defines the two voice capabilities the assistant depends
// on and the single-flight discipline that keeps them from stepping on each
// other: at most one capture and one playback in flight, abort-before-start
// both ways.
package speech

import (
	"context"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Recognizer captures exactly one utterance per Listen call. Abort tears
// down an in-flight capture; a concurrent Listen then returns promptly
// (what it returns is engine-internal, the Engine never surfaces it).
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
	Abort()
}

// Synthesizer plays one utterance at a time. Speak blocks until playback
// ends or fails; Cancel stops an in-flight utterance.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Engine serializes access to one recognizer and one synthesizer. The
// Listening/Speaking flags are observable state for hosts: Stop flips them
// false immediately, without waiting for the underlying engines to finish
// tearing down, so the surface never looks stuck mid-transition.
type Engine struct {
	rec Recognizer
	syn Synthesizer

	// settle is waited out after each utterance ends before the caller gets
	// control back, so device playback tail is not captured as input.
	settle time.Duration

	mu        sync.Mutex
	listening atomic.Bool
	speaking  atomic.Bool
}

type EngineOption func(*Engine)

// WithSettle overrides the post-playback settle delay. Tests set it to zero.
func WithSettle(d time.Duration) EngineOption {
	return func(e *Engine) { e.settle = d }
}

func NewEngine(rec Recognizer, syn Synthesizer, opts ...EngineOption) *Engine {
	e := &Engine{rec: rec, syn: syn, settle: 300 * time.Millisecond}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Listening() bool { return e.listening.Load() }
func (e *Engine) Speaking() bool  { return e.speaking.Load() }

// Say synthesizes one utterance. Synthesis failures are soft: they are
// logged and Say still returns nil so the flow never stalls on a broken
// speaker. Only context cancellation is surfaced.
func (e *Engine) Say(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rec.Abort()
	e.listening.Store(false)
	e.syn.Cancel()

	e.speaking.Store(true)
	err := e.syn.Speak(ctx, text)
	e.speaking.Store(false)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		log.Error("synthesis failed, continuing", "err", err)
	}

	if e.settle > 0 {
		select {
		case <-time.After(e.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Hear captures one utterance, aborting any prior capture and cancelling
// playback first.
func (e *Engine) Hear(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rec.Abort()
	e.syn.Cancel()
	e.speaking.Store(false)

	e.listening.Store(true)
	defer e.listening.Store(false)

	return e.rec.Listen(ctx)
}

// Stop aborts everything in flight. Flags drop immediately, regardless of
// how long the underlying engines take to wind down.
func (e *Engine) Stop() {
	e.listening.Store(false)
	e.speaking.Store(false)
	e.syn.Cancel()
	e.rec.Abort()
}
