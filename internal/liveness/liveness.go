// Package liveness decides whether a frame shows a live face using eye-aspect-ratio geometry.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/andresmejia3/moodgate/internal/types"
	"go.uber.org/zap"
)

// DefaultThreshold is the average EAR a face must exceed to count as live.
const DefaultThreshold = 0.15

// Face mesh indices of the eye contours, ordered p1..p6:
// p1/p4 are the horizontal corners, p2/p3 the upper lid, p5/p6 the lower lid.
var (
	LeftEye  = [6]int{33, 160, 158, 133, 153, 144}
	RightEye = [6]int{362, 385, 387, 263, 373, 380}
)

// Reason says which branch produced a verdict.
type Reason string

const (
	ReasonLive          Reason = "live"
	ReasonEyesClosed    Reason = "eyes-closed"
	ReasonNoFace        Reason = "no-face"
	ReasonDetectorError Reason = "detector-error"
	ReasonGeometryError Reason = "geometry-error"
)

// ErrDegenerateEye is returned when an eye's corners coincide.
var ErrDegenerateEye = errors.New("eye corners coincide")

// LandmarkProvider finds the face mesh in a frame.
// It returns normalized [0,1] points, or a nil slice when no face is present.
type LandmarkProvider interface {
	DetectLandmarks(ctx context.Context, frame types.Frame) ([]types.Point, error)
}

// Verdict is the single-frame liveness decision.
// Live is false on every failure path; Err is set when the failure was unexpected.
type Verdict struct {
	Live   bool
	EAR    float64
	Reason Reason
	Err    error
}

// Evaluator turns landmarks into a liveness verdict.
type Evaluator struct {
	provider  LandmarkProvider
	threshold float64
	logger    *zap.Logger

	// ratio computes the averaged EAR; replaced in tests.
	ratio func(lm types.LandmarkSet, left, right [6]int) (float64, error)
}

// NewEvaluator builds an evaluator. A non-positive threshold falls back to DefaultThreshold.
func NewEvaluator(provider LandmarkProvider, threshold float64, logger *zap.Logger) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		provider:  provider,
		threshold: threshold,
		logger:    logger,
		ratio:     AverageEAR,
	}
}

// Threshold returns the EAR cut-off in use.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}

// Evaluate runs the landmark provider on frame and applies the EAR test. It never fails open.
func (e *Evaluator) Evaluate(ctx context.Context, frame types.Frame) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("liveness check panicked", zap.Any("panic", r))
			v = Verdict{Reason: ReasonGeometryError, Err: fmt.Errorf("liveness check panicked: %v", r)}
		}
	}()

	points, err := e.provider.DetectLandmarks(ctx, frame)
	if err != nil {
		e.logger.Warn("landmark detection failed", zap.Error(err))
		return Verdict{Reason: ReasonDetectorError, Err: err}
	}
	if len(points) == 0 {
		e.logger.Debug("no landmarks detected")
		return Verdict{Reason: ReasonNoFace}
	}

	lm := ToPixels(points, frame.Width, frame.Height)
	ear, err := e.ratio(lm, LeftEye, RightEye)
	if err != nil {
		e.logger.Warn("eye aspect ratio failed", zap.Error(err))
		return Verdict{Reason: ReasonGeometryError, Err: err}
	}
	e.logger.Debug("eye aspect ratio", zap.Float64("ear", ear))

	if ear > e.threshold {
		return Verdict{Live: true, EAR: ear, Reason: ReasonLive}
	}
	return Verdict{EAR: ear, Reason: ReasonEyesClosed}
}

// ToPixels scales normalized points to the frame size, truncating toward zero.
func ToPixels(points []types.Point, width, height int) types.LandmarkSet {
	lm := make(types.LandmarkSet, len(points))
	for i, p := range points {
		lm[i] = types.Point{
			X: float64(int(p.X * float64(width))),
			Y: float64(int(p.Y * float64(height))),
		}
	}
	return lm
}

// AverageEAR is the mean of the left and right eye aspect ratios.
func AverageEAR(lm types.LandmarkSet, left, right [6]int) (float64, error) {
	l, err := eyeAt(lm, left)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}
	r, err := eyeAt(lm, right)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}

	le, err := EyeAspectRatio(l)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}
	re, err := EyeAspectRatio(r)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}

	avg := (le + re) / 2.0
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 0, fmt.Errorf("non-finite eye aspect ratio %v", avg)
	}
	return avg, nil
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2 * |p1-p4|).
func EyeAspectRatio(eye [6]types.Point) (float64, error) {
	a := distance(eye[1], eye[5])
	b := distance(eye[2], eye[4])
	c := distance(eye[0], eye[3])
	if c == 0 {
		return 0, ErrDegenerateEye
	}
	return (a + b) / (2.0 * c), nil
}

func eyeAt(lm types.LandmarkSet, idx [6]int) ([6]types.Point, error) {
	var eye [6]types.Point
	for i, j := range idx {
		if j < 0 || j >= len(lm) {
			return eye, fmt.Errorf("landmark index %d out of range (have %d points)", j, len(lm))
		}
		eye[i] = lm[j]
	}
	return eye, nil
}

func distance(p1, p2 types.Point) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return math.Sqrt(dx*dx + dy*dy)
}
