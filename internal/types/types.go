package types

import (
	"time"
)

// Frame is one captured image at the working resolution.
// Data holds row-major BGR bytes (Width * Height * Channels).
type Frame struct {
	Seq        uint64
	Width      int
	Height     int
	Channels   int
	Data       []byte
	CapturedAt time.Time
}

// Clone returns a deep copy so the caller can mutate it without touching the original buffer.
func (f Frame) Clone() Frame {
	c := f
	if f.Data != nil {
		c.Data = make([]byte, len(f.Data))
		copy(c.Data, f.Data)
	}
	return c
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Data) == 0
}

// Point is a 2D coordinate. Landmark providers return normalized [0,1] points,
// the liveness evaluator works in pixel space.
type Point struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
}

// LandmarkSet is the face mesh in pixel coordinates, indexed by the mesh's fixed scheme.
type LandmarkSet []Point

// Emotion labels produced by the classifier.
const (
	Angry    = "angry"
	Disgust  = "disgust"
	Fear     = "fear"
	Happy    = "happy"
	Sad      = "sad"
	Surprise = "surprise"
	Neutral  = "neutral"
)

// Labels that stand in for a classifier result.
const (
	LabelInitial  = "Neutral"
	LabelFakeFace = "Fake Face"
	LabelUnknown  = "Unknown"
)

// EmotionResult is a label paired with its confidence in [0, 100].
type EmotionResult struct {
	Label string
	Score float64
}

// AnalysisState is what one analysis cycle hands back to the capture loop.
// Both fields always come from the same cycle.
type AnalysisState struct {
	Emotion EmotionResult
	Live    bool
}

// InitialState is shown until the first analysis cycle completes.
func InitialState() AnalysisState {
	return AnalysisState{Emotion: EmotionResult{Label: LabelInitial, Score: 0}, Live: false}
}

// FakeFaceState is published when the liveness check rejects a frame.
func FakeFaceState() AnalysisState {
	return AnalysisState{Emotion: EmotionResult{Label: LabelFakeFace, Score: 0}, Live: false}
}
