package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresmejia3/moodgate/internal/emotion"
	"github.com/andresmejia3/moodgate/internal/liveness"
	"github.com/andresmejia3/moodgate/internal/state"
	"github.com/andresmejia3/moodgate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedVerdict struct {
	verdict liveness.Verdict
	calls   atomic.Int32
}

func (f *fixedVerdict) Evaluate(ctx context.Context, frame types.Frame) liveness.Verdict {
	f.calls.Add(1)
	return f.verdict
}

type stubClassifier struct {
	analysis emotion.Analysis
	err      error
	calls    atomic.Int32
}

func (s *stubClassifier) Analyze(ctx context.Context, frame types.Frame, opts emotion.Options) (emotion.Analysis, error) {
	s.calls.Add(1)
	return s.analysis, s.err
}

func happy() *stubClassifier {
	return &stubClassifier{analysis: emotion.Analysis{
		Dominant: types.Happy,
		Scores:   map[string]float64{types.Happy: 92.5, types.Neutral: 7.5},
	}}
}

func newWorker(lc LivenessChecker, c emotion.Classifier) (*Worker, *state.Cell) {
	cell := state.New()
	svc := emotion.NewService(c, emotion.DefaultOptions(""), nil)
	return NewWorker(cell, lc, svc, 5*time.Millisecond, nil), cell
}

func publishFrame(cell *state.Cell, seq uint64) {
	cell.PublishFrame(types.Frame{Seq: seq, Width: 2, Height: 2, Channels: 3, Data: make([]byte, 12)})
}

func TestCycle_NoFrameIsNoop(t *testing.T) {
	lc := &fixedVerdict{verdict: liveness.Verdict{Live: true, EAR: 0.3, Reason: liveness.ReasonLive}}
	c := happy()
	w, cell := newWorker(lc, c)

	rep := w.Cycle(context.Background())

	assert.Equal(t, OutcomeSkipped, rep.Outcome)
	assert.Equal(t, types.AnalysisState{Emotion: types.EmotionResult{Label: "Neutral", Score: 0}, Live: false}, cell.State())
	assert.Zero(t, lc.calls.Load())
	assert.Zero(t, c.calls.Load())
	assert.Zero(t, cell.Stats().StatesPublished)
}

func TestCycle_LiveFaceIsClassified(t *testing.T) {
	lc := &fixedVerdict{verdict: liveness.Verdict{Live: true, EAR: 0.21, Reason: liveness.ReasonLive}}
	c := happy()
	w, cell := newWorker(lc, c)
	publishFrame(cell, 3)

	rep := w.Cycle(context.Background())

	assert.Equal(t, OutcomeLive, rep.Outcome)
	assert.Equal(t, uint64(3), rep.FrameSeq)
	assert.Equal(t, int32(1), c.calls.Load())
	assert.Equal(t, types.AnalysisState{Emotion: types.EmotionResult{Label: "happy", Score: 92.5}, Live: true}, cell.State())
}

func TestCycle_SpoofSkipsClassifier(t *testing.T) {
	lc := &fixedVerdict{verdict: liveness.Verdict{EAR: 0.055, Reason: liveness.ReasonEyesClosed}}
	c := happy()
	w, cell := newWorker(lc, c)
	publishFrame(cell, 1)

	rep := w.Cycle(context.Background())

	assert.Equal(t, OutcomeSpoof, rep.Outcome)
	assert.Zero(t, c.calls.Load(), "classifier must not run on a rejected face")
	assert.Equal(t, types.AnalysisState{Emotion: types.EmotionResult{Label: "Fake Face", Score: 0}, Live: false}, cell.State())
}

func TestCycle_ClassifierFailureIsUnknown(t *testing.T) {
	lc := &fixedVerdict{verdict: liveness.Verdict{Live: true, EAR: 0.3, Reason: liveness.ReasonLive}}
	c := &stubClassifier{err: errors.New("model load failure")}
	w, cell := newWorker(lc, c)
	publishFrame(cell, 1)

	rep := w.Cycle(context.Background())

	require.Error(t, rep.Emotion.Err)
	assert.Equal(t, types.AnalysisState{Emotion: types.EmotionResult{Label: "Unknown", Score: 0}, Live: true}, cell.State())
}

func TestCycle_WithEvaluator(t *testing.T) {
	tests := []struct {
		name      string
		provider  liveness.LandmarkProvider
		wantState types.AnalysisState
		wantCalls int32
	}{
		{
			name:      "No face",
			provider:  providerFunc(func() ([]types.Point, error) { return nil, nil }),
			wantState: types.FakeFaceState(),
			wantCalls: 0,
		},
		{
			name:      "Detector crashed",
			provider:  providerFunc(func() ([]types.Point, error) { return nil, errors.New("broken pipe") }),
			wantState: types.FakeFaceState(),
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := happy()
			w, cell := newWorker(liveness.NewEvaluator(tt.provider, liveness.DefaultThreshold, nil), c)
			publishFrame(cell, 1)

			w.Cycle(context.Background())

			assert.Equal(t, tt.wantState, cell.State())
			assert.Equal(t, tt.wantCalls, c.calls.Load())
		})
	}
}

func TestRun_PublishesAndStops(t *testing.T) {
	lc := &fixedVerdict{verdict: liveness.Verdict{Live: true, EAR: 0.3, Reason: liveness.ReasonLive}}
	w, cell := newWorker(lc, happy())
	publishFrame(cell, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return cell.State().Live
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestNewWorkerDefaultsInterval(t *testing.T) {
	w := NewWorker(state.New(), nil, nil, 0, nil)
	assert.Equal(t, DefaultInterval, w.interval)
}

type providerFunc func() ([]types.Point, error)

func (f providerFunc) DetectLandmarks(ctx context.Context, frame types.Frame) ([]types.Point, error) {
	return f()
}
