package session

import (
	"context"
	"errors"
	log "log/slog"
	"sync"
)

// ErrBusy is returned by Start while another session is still running.
var ErrBusy = errors.New("an intake session is already running")

// Runner owns the daemon's single in-flight session: at most one runs at a
// time, and Cancel only ever tears down the session it currently tracks.
// The zero value is ready to use.
type Runner struct {
	mu     sync.Mutex
	active *Session
	cancel context.CancelFunc
}

// Start spawns a new session in the background. It refuses rather than
// queues while one is already running.
func (r *Runner) Start(cfg Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrBusy
	}

	s := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	r.active, r.cancel = s, cancel

	go r.run(ctx, s)
	return s, nil
}

func (r *Runner) run(ctx context.Context, s *Session) {
	// Clear only this session's handle: after a Cancel the slot may already
	// belong to a replacement session.
	defer func() {
		r.mu.Lock()
		if r.active == s {
			r.active, r.cancel = nil, nil
		}
		r.mu.Unlock()
	}()

	if _, err := s.Run(ctx); err != nil {
		log.Warn("Session ended early", "session", s.ID(), "err", err)
		return
	}
	log.Info("Session complete", "session", s.ID())
}

// Cancel stops the tracked session, if any, and reports whether there was
// one to stop.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return false
	}
	r.cancel()
	r.active, r.cancel = nil, nil
	return true
}

// Busy reports whether a session is currently tracked.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}
