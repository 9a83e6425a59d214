package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/andresmejia3/moodgate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	analysis Analysis
	err      error
	panics   bool
	gotOpts  Options
}

func (s *stubClassifier) Analyze(ctx context.Context, frame types.Frame, opts Options) (Analysis, error) {
	s.gotOpts = opts
	if s.panics {
		panic("model not loaded")
	}
	return s.analysis, s.err
}

func TestClassifyDominant(t *testing.T) {
	c := &stubClassifier{analysis: Analysis{
		Dominant: types.Happy,
		Scores:   map[string]float64{types.Happy: 87.25, types.Sad: 2.5, types.Neutral: 10.25},
	}}
	s := NewService(c, DefaultOptions(""), nil)

	out := s.Classify(context.Background(), types.Frame{})
	require.True(t, out.OK())
	assert.Equal(t, types.EmotionResult{Label: "happy", Score: 87.25}, out.Result)
	assert.Len(t, out.Scores, 3)
}

func TestClassifyPassesOptions(t *testing.T) {
	c := &stubClassifier{analysis: Analysis{Dominant: types.Sad, Scores: map[string]float64{types.Sad: 50}}}
	s := NewService(c, DefaultOptions("ssd"), nil)

	s.Classify(context.Background(), types.Frame{})
	assert.Equal(t, Options{Axis: "emotion", EnforceDetection: false, Backend: "ssd"}, c.gotOpts)
}

func TestClassifyFallsBackToUnknown(t *testing.T) {
	tests := []struct {
		name       string
		classifier *stubClassifier
		wantErr    error
	}{
		{
			name:       "Classifier error",
			classifier: &stubClassifier{err: errors.New("face could not be detected")},
		},
		{
			name:       "Empty dominant label",
			classifier: &stubClassifier{analysis: Analysis{Scores: map[string]float64{types.Happy: 10}}},
			wantErr:    ErrNoDominant,
		},
		{
			name:       "Dominant label without score",
			classifier: &stubClassifier{analysis: Analysis{Dominant: types.Fear, Scores: map[string]float64{types.Happy: 10}}},
			wantErr:    ErrDominantMissing,
		},
		{
			name:       "Classifier panics",
			classifier: &stubClassifier{panics: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewService(tt.classifier, DefaultOptions(""), nil).Classify(context.Background(), types.Frame{})

			assert.False(t, out.OK())
			assert.Equal(t, types.EmotionResult{Label: "Unknown", Score: 0}, out.Result)
			if tt.wantErr != nil {
				assert.ErrorIs(t, out.Err, tt.wantErr)
			}
		})
	}
}

func TestDominantClampsScore(t *testing.T) {
	got, err := Dominant(Analysis{Dominant: types.Angry, Scores: map[string]float64{types.Angry: 100.0000001}})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Score)

	got, err = Dominant(Analysis{Dominant: types.Angry, Scores: map[string]float64{types.Angry: -3}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Score)
}
