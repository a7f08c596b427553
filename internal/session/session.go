// Package session drives one complete intake pass: prompt, listen, parse,
// advance, and on completion prediction, history bookkeeping and the
// conversational follow-up. It owns the only goroutine that mutates the
// intake record.
package session

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"github.com/google/uuid"

	"alive/internal/explain"
	"alive/internal/history"
	"alive/internal/intake"
	"alive/internal/predict"
	"alive/internal/speech"
)

// Predictor is the slice of the prediction client the session needs.
type Predictor interface {
	Assess(ctx context.Context, rec intake.Record) predict.Result
}

// Recorder is the slice of the history store the session needs.
type Recorder interface {
	Append(ctx context.Context, res predict.Result) error
	Previous(ctx context.Context, name string, ts int64) (*predict.Result, error)
}

// Config wires a session. Earcon and History are optional; Chat enables
// the post-result question loop.
type Config struct {
	Engine    *speech.Engine
	Script    intake.Script
	Predictor Predictor
	History   Recorder
	Earcon    func() error
	Chat      bool
}

type Session struct {
	id      string
	cfg     Config
	machine *intake.Machine
	log     *log.Logger
}

func New(cfg Config) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		cfg:     cfg,
		machine: intake.NewMachine(cfg.Script),
		log:     log.With("session", id),
	}
}

func (s *Session) ID() string { return s.id }

// Run executes the whole session. Cancelling the context at any point
// aborts outstanding speech, resets the wizard to idle and returns the
// context error; no result is produced.
func (s *Session) Run(ctx context.Context) (*predict.Result, error) {
	s.log.Info("intake session starting")

	out := s.machine.Start()
	for {
		if err := s.cfg.Engine.Say(ctx, out.Prompt); err != nil {
			return nil, s.abort(err)
		}
		if out.Submit {
			break
		}
		if !out.Listen {
			return nil, s.abort(fmt.Errorf("wizard stalled at step %s", s.machine.Step()))
		}

		s.cue()

		text, err := s.cfg.Engine.Hear(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, s.abort(ctx.Err())
			}
			// Recognition trouble is soft: re-prompt the same step.
			s.log.Warn("capture failed, re-prompting", "step", s.machine.Step(), "err", err)
			out = s.machine.Repeat()
			continue
		}

		s.log.Debug("utterance", "step", s.machine.Step(), "text", text)
		out = s.machine.Feed(text)
		if !out.Accepted {
			s.log.Debug("answer rejected", "step", s.machine.Step())
		}
	}

	res := s.cfg.Predictor.Assess(ctx, s.machine.Record())
	s.log.Info("assessment ready", "risk", res.RiskProbability, "category", res.RiskCategory)

	cmp := s.remember(ctx, res)

	if err := s.cfg.Engine.Say(ctx, summary(res, cmp)); err != nil {
		return &res, err
	}

	if s.cfg.Chat {
		if err := s.chat(ctx, res); err != nil {
			return &res, err
		}
	}

	return &res, nil
}

// remember appends the result to history and looks up the previous visit.
// Storage failures are logged, never fatal.
func (s *Session) remember(ctx context.Context, res predict.Result) *history.Comparison {
	if s.cfg.History == nil {
		return nil
	}

	prev, err := s.cfg.History.Previous(ctx, res.Name, res.Timestamp)
	if err != nil {
		s.log.Warn("history lookup failed", "err", err)
	}
	if err := s.cfg.History.Append(ctx, res); err != nil {
		s.log.Warn("history append failed", "err", err)
	}

	if prev == nil {
		return nil
	}
	cmp := history.Compare(*prev, res)
	return &cmp
}

// chat loops question -> rule-based answer until the user says stop or the
// context is cancelled.
func (s *Session) chat(ctx context.Context, res predict.Result) error {
	if err := s.cfg.Engine.Say(ctx, "You can ask me about your risk factors, diet, or exercise. Say stop when you are done."); err != nil {
		return s.abort(err)
	}

	for {
		s.cue()

		text, err := s.cfg.Engine.Hear(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return s.abort(ctx.Err())
			}
			s.log.Warn("chat capture failed", "err", err)
			continue
		}

		if wantsOut(text) {
			return s.cfg.Engine.Say(ctx, s.cfg.Script.Farewell)
		}

		answer := explain.Analyze(text, res)
		if err := s.cfg.Engine.Say(ctx, answer); err != nil {
			return s.abort(err)
		}
	}
}

func (s *Session) cue() {
	if s.cfg.Earcon == nil {
		return
	}
	if err := s.cfg.Earcon(); err != nil {
		s.log.Debug("earcon failed", "err", err)
	}
}

// abort resets the wizard and guarantees no speech operation stays active.
func (s *Session) abort(err error) error {
	s.cfg.Engine.Stop()
	s.machine.Reset()
	s.log.Info("session aborted", "err", err)
	return err
}

func summary(res predict.Result, cmp *history.Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis complete. %s, your cardiovascular risk is %.1f percent. Category: %s.",
		res.Name, res.RiskPercent(), res.RiskCategory)
	if res.Note != "" {
		b.WriteString(" " + res.Note)
	}
	if cmp != nil {
		if cmp.Improved {
			fmt.Fprintf(&b, " Compared to your visit on %s, your risk is down %.1f points. Great progress.", cmp.PrevDate, cmp.Diff)
		} else {
			fmt.Fprintf(&b, " Compared to your visit on %s, your risk is up %.1f points.", cmp.PrevDate, -cmp.Diff)
		}
	}
	return b.String()
}

func wantsOut(text string) bool {
	t := strings.ToLower(text)
	for _, w := range []string{"stop", "goodbye", "exit", "that's all"} {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}
