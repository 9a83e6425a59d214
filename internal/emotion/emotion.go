// Package emotion wraps the external emotion classifier and reduces its output to one dominant label.
package emotion

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/moodgate/internal/types"
	"go.uber.org/zap"
)

// AxisEmotion is the only analysis axis this package requests.
const AxisEmotion = "emotion"

// DefaultBackend is the classifier's fastest face detector.
const DefaultBackend = "opencv"

// Options are passed through to the classifier on every call.
type Options struct {
	Axis             string
	EnforceDetection bool
	Backend          string
}

// DefaultOptions analyzes the frame as-is even when the classifier's own detector finds no face.
func DefaultOptions(backend string) Options {
	if backend == "" {
		backend = DefaultBackend
	}
	return Options{Axis: AxisEmotion, EnforceDetection: false, Backend: backend}
}

// Analysis is the raw classifier output.
type Analysis struct {
	Dominant string
	Scores   map[string]float64
}

// Classifier is the external emotion model.
type Classifier interface {
	Analyze(ctx context.Context, frame types.Frame, opts Options) (Analysis, error)
}

// Errors describing a malformed classifier response.
var (
	ErrNoDominant      = errors.New("classifier returned no dominant emotion")
	ErrDominantMissing = errors.New("dominant emotion missing from score distribution")
)

// Outcome is either a dominant emotion or the Unknown sentinel with the reason in Err.
type Outcome struct {
	Result types.EmotionResult
	Scores map[string]float64
	Err    error
}

// OK reports whether the classifier produced a usable result.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Service invokes the classifier with fixed options.
type Service struct {
	classifier Classifier
	opts       Options
	logger     *zap.Logger
}

// NewService wraps a classifier.
func NewService(c Classifier, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{classifier: c, opts: opts, logger: logger}
}

// Classify returns the dominant emotion of frame. Failures come back as ("Unknown", 0).
func (s *Service) Classify(ctx context.Context, frame types.Frame) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = unknown(fmt.Errorf("classifier panicked: %v", r))
			s.logger.Error("emotion classifier panicked", zap.Any("panic", r))
		}
	}()

	a, err := s.classifier.Analyze(ctx, frame, s.opts)
	if err != nil {
		s.logger.Warn("emotion classifier failed", zap.Error(err))
		return unknown(err)
	}

	res, err := Dominant(a)
	if err != nil {
		s.logger.Warn("emotion classifier returned an unusable result", zap.Error(err))
		return unknown(err)
	}
	return Outcome{Result: res, Scores: a.Scores}
}

// Dominant extracts the dominant label and its confidence, clamped to [0, 100].
func Dominant(a Analysis) (types.EmotionResult, error) {
	if a.Dominant == "" {
		return types.EmotionResult{}, ErrNoDominant
	}
	score, ok := a.Scores[a.Dominant]
	if !ok {
		return types.EmotionResult{}, fmt.Errorf("%w: %q", ErrDominantMissing, a.Dominant)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return types.EmotionResult{Label: a.Dominant, Score: score}, nil
}

func unknown(err error) Outcome {
	return Outcome{Result: types.EmotionResult{Label: types.LabelUnknown, Score: 0}, Err: err}
}
