package analysis

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/andresmejia3/moodgate/internal/emotion"
	"github.com/andresmejia3/moodgate/internal/liveness"
	"github.com/andresmejia3/moodgate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTable_Live(t *testing.T) {
	rep := Report{
		Outcome: OutcomeLive,
		Verdict: liveness.Verdict{Live: true, EAR: 0.2134, Reason: liveness.ReasonLive},
		Emotion: emotion.Outcome{
			Result: types.EmotionResult{Label: types.Happy, Score: 80},
			Scores: map[string]float64{types.Happy: 80, types.Sad: 5, types.Neutral: 15},
		},
		State: types.AnalysisState{Emotion: types.EmotionResult{Label: types.Happy, Score: 80}, Live: true},
	}

	var out bytes.Buffer
	require.NoError(t, rep.WriteTable(&out))
	got := out.String()

	assert.Contains(t, got, "Real Face ✅")
	assert.Contains(t, got, "0.213")
	assert.Contains(t, got, "happy (80.0%)")

	// Scores are listed highest first
	happy := strings.Index(got, "happy   ")
	neutral := strings.Index(got, "neutral")
	sad := strings.Index(got, "sad")
	assert.True(t, happy < neutral && neutral < sad, "unexpected order:\n%s", got)
}

func TestWriteTable_NoFace(t *testing.T) {
	rep := Report{
		Outcome: OutcomeSpoof,
		Verdict: liveness.Verdict{Reason: liveness.ReasonNoFace},
		State:   types.FakeFaceState(),
	}

	var out bytes.Buffer
	require.NoError(t, rep.WriteTable(&out))
	got := out.String()

	assert.Contains(t, got, "Fake Face ❌")
	assert.Contains(t, got, "Fake Face (0.0%)")
	assert.NotContains(t, got, "Eye aspect ratio")
	assert.NotContains(t, got, "EMOTION")
}

func TestWriteTable_Errors(t *testing.T) {
	rep := Report{
		Outcome: OutcomeSpoof,
		Verdict: liveness.Verdict{Reason: liveness.ReasonDetectorError, Err: errors.New("broken pipe")},
		State:   types.FakeFaceState(),
	}

	var out bytes.Buffer
	require.NoError(t, rep.WriteTable(&out))
	assert.Contains(t, out.String(), "broken pipe")
}
