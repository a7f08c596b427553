package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alive/internal/intake"
	"alive/internal/predict"
	"alive/internal/speech"
)

// reply is one scripted answer for the fake recognizer.
type reply struct {
	text string
	err  error
}

// scriptedRec plays back replies in order and blocks on the context once
// the script runs out, which is how the cancellation tests hang a session
// mid-step.
type scriptedRec struct {
	mu      sync.Mutex
	replies []reply
	i       int
	waiting chan struct{} // closed once Listen blocks past the script
}

func (r *scriptedRec) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.i < len(r.replies) {
		rep := r.replies[r.i]
		r.i++
		r.mu.Unlock()
		return rep.text, rep.err
	}
	if r.waiting != nil {
		close(r.waiting)
		r.waiting = nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

func (r *scriptedRec) Abort() {}

type recordingSyn struct {
	mu     sync.Mutex
	spoken []string
}

func (s *recordingSyn) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return nil
}

func (s *recordingSyn) Cancel() {}

func (s *recordingSyn) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.spoken) == 0 {
		return ""
	}
	return s.spoken[len(s.spoken)-1]
}

type fakePredictor struct {
	got  intake.Record
	resp predict.Response
}

func (p *fakePredictor) Assess(ctx context.Context, rec intake.Record) predict.Result {
	p.got = rec
	rec2 := rec
	if rec2.Name == "" {
		rec2.Name = "Guest User"
	}
	return predict.Result{
		Record:    rec2,
		Response:  p.resp,
		Date:      "2025-06-01",
		Timestamp: 5000,
	}
}

type memRecorder struct {
	prev     *predict.Result
	appended []predict.Result
	fail     bool
}

func (m *memRecorder) Append(ctx context.Context, res predict.Result) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.appended = append(m.appended, res)
	return nil
}

func (m *memRecorder) Previous(ctx context.Context, name string, ts int64) (*predict.Result, error) {
	if m.fail {
		return nil, errors.New("disk full")
	}
	return m.prev, nil
}

// fullIntake answers every wizard step, with one garbled answer at weight
// and one outright capture failure at age along the way.
func fullIntake() []reply {
	return []reply{
		{text: "Jane"},
		{err: errors.New("mic glitch")}, // age, first attempt
		{text: "I am 52 years old"},
		{text: "170"},
		{text: "no idea"}, // weight, not a number
		{text: "80 kilograms"},
		{text: "130"},
		{text: "85"},
		{text: "no I don't"},
		{text: "no"},
		{text: "yes, daily"},
		{text: "it is normal"},
		{text: "slightly elevated"},
	}
}

func run(t *testing.T, rec *scriptedRec, syn *recordingSyn, pred *fakePredictor, store *memRecorder, chat bool) (*predict.Result, error) {
	t.Helper()
	s := New(Config{
		Engine:    speech.NewEngine(rec, syn, speech.WithSettle(0)),
		Script:    intake.DefaultScript(),
		Predictor: pred,
		History:   store,
		Chat:      chat,
	})
	require.NotEmpty(t, s.ID())
	return s.Run(context.Background())
}

func TestRunCompletesIntake(t *testing.T) {
	rec := &scriptedRec{replies: fullIntake()}
	syn := &recordingSyn{}
	pred := &fakePredictor{resp: predict.Response{RiskProbability: 0.2, RiskCategory: "Low Risk"}}
	store := &memRecorder{}

	res, err := run(t, rec, syn, pred, store, false)
	require.NoError(t, err)
	require.NotNil(t, res)

	want := intake.Record{
		Name: "Jane", Age: 52, Height: 170, Weight: 80,
		ApHi: 130, ApLo: 85,
		Cholesterol: intake.LevelNormal, Gluc: intake.LevelElevated,
		Smoke: 0, Alco: 0, Active: 1,
	}
	assert.Equal(t, want, pred.got)

	require.Len(t, store.appended, 1)
	assert.Equal(t, "Jane", store.appended[0].Name)

	assert.Equal(t,
		"Analysis complete. Jane, your cardiovascular risk is 20.0 percent. Category: Low Risk.",
		syn.last())
}

func TestRunSpeaksComparisonWhenHistoryExists(t *testing.T) {
	rec := &scriptedRec{replies: fullIntake()}
	syn := &recordingSyn{}
	pred := &fakePredictor{resp: predict.Response{RiskProbability: 0.2, RiskCategory: "Low Risk"}}

	prevRec := intake.NewRecord()
	prevRec.Name = "Jane"
	store := &memRecorder{prev: &predict.Result{
		Record:    prevRec,
		Response:  predict.Response{RiskProbability: 0.3, RiskCategory: "Low Risk"},
		Date:      "2025-01-10",
		Timestamp: 1000,
	}}

	_, err := run(t, rec, syn, pred, store, false)
	require.NoError(t, err)

	last := syn.last()
	assert.Contains(t, last, "Compared to your visit on 2025-01-10")
	assert.Contains(t, last, "down 10.0 points")
	assert.Contains(t, last, "Great progress")
}

func TestRunSurvivesBrokenHistory(t *testing.T) {
	rec := &scriptedRec{replies: fullIntake()}
	syn := &recordingSyn{}
	pred := &fakePredictor{resp: predict.Response{RiskProbability: 0.2, RiskCategory: "Low Risk"}}

	res, err := run(t, rec, syn, pred, &memRecorder{fail: true}, false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotContains(t, syn.last(), "Compared to your visit")
}

func TestChatAnswersThenSaysFarewell(t *testing.T) {
	replies := append(fullIntake(),
		reply{text: "what should I eat"},
		reply{text: "okay stop"},
	)
	rec := &scriptedRec{replies: replies}
	syn := &recordingSyn{}
	pred := &fakePredictor{resp: predict.Response{RiskProbability: 0.2, RiskCategory: "Low Risk"}}

	_, err := run(t, rec, syn, pred, &memRecorder{}, true)
	require.NoError(t, err)

	joined := strings.Join(syn.spoken, "\n")
	assert.Contains(t, joined, "ask me about your risk factors")
	assert.Contains(t, joined, "low in saturated fats and added sugars")
	assert.Equal(t, intake.DefaultScript().Farewell, syn.last())
}

func TestCancelMidIntakeAbortsCleanly(t *testing.T) {
	waiting := make(chan struct{})
	rec := &scriptedRec{
		replies: []reply{{text: "Jane"}, {text: "52"}},
		waiting: waiting,
	}
	syn := &recordingSyn{}
	pred := &fakePredictor{}
	engine := speech.NewEngine(rec, syn, speech.WithSettle(0))

	s := New(Config{
		Engine:    engine,
		Script:    intake.DefaultScript(),
		Predictor: pred,
		History:   &memRecorder{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var res *predict.Result
	go func() {
		var err error
		res, err = s.Run(ctx)
		done <- err
	}()

	select {
	case <-waiting:
	case <-time.After(time.Second):
		t.Fatal("session never reached the blocked step")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res)
		assert.False(t, engine.Listening())
		assert.False(t, engine.Speaking())
		assert.Zero(t, pred.got.Name, "prediction must not run on an aborted session")
	case <-time.After(time.Second):
		t.Fatal("session did not stop after cancel")
	}
}
