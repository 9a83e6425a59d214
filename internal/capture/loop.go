// Package capture drives the visible side of the pipeline: read, publish, overlay, show.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/andresmejia3/moodgate/internal/metrics"
	"github.com/andresmejia3/moodgate/internal/state"
	"github.com/andresmejia3/moodgate/internal/types"
	"go.uber.org/zap"
)

// ErrCameraUnavailable is returned when the camera stops producing frames. It is fatal.
var ErrCameraUnavailable = errors.New("cannot access webcam")

// Camera yields frames already resized to the working resolution.
type Camera interface {
	Read() (types.Frame, error)
	Close() error
}

// Surface shows a frame with its overlay. It returns true when the user asked to quit.
type Surface interface {
	Show(frame types.Frame, ov Overlay) (quit bool)
}

// StatusSink receives the short status line once per captured frame.
type StatusSink interface {
	Update(text string, live bool)
	Warn(text string)
}

// Overlay colors, BGR order is handled by the surface.
var (
	ColorLive  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	ColorSpoof = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// Overlay is the text drawn over a frame.
type Overlay struct {
	Text   string
	Status string
	Live   bool
	Color  color.RGBA
}

// NewOverlay renders an analysis state as "{emotion} ({score}%) | {Real/Fake}".
func NewOverlay(s types.AnalysisState) Overlay {
	status := LivenessText(s.Live)
	c := ColorSpoof
	if s.Live {
		c = ColorLive
	}
	return Overlay{
		Text:   fmt.Sprintf("%s (%.1f%%) | %s", s.Emotion.Label, s.Emotion.Score, status),
		Status: status,
		Live:   s.Live,
		Color:  c,
	}
}

// LivenessText is the human-readable verdict.
func LivenessText(live bool) string {
	if live {
		return "Real Face ✅"
	}
	return "Fake Face ❌"
}

// Loop owns the camera for its whole lifetime.
type Loop struct {
	cam     Camera
	cell    *state.Cell
	surface Surface
	status  StatusSink
	onExit  func()
	logger  *zap.Logger

	seq uint64
}

// NewLoop builds a capture loop. onExit runs once when Run returns, before the camera is released;
// it is how the loop tells the analysis worker to stop.
func NewLoop(cam Camera, cell *state.Cell, surface Surface, status StatusSink, onExit func(), logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onExit == nil {
		onExit = func() {}
	}
	return &Loop{
		cam:     cam,
		cell:    cell,
		surface: surface,
		status:  status,
		onExit:  onExit,
		logger:  logger,
	}
}

// Run captures until the camera fails (ErrCameraUnavailable), ctx is cancelled, or the surface asks to quit.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.cam.Close(); err != nil {
			l.logger.Warn("failed to release camera", zap.Error(err))
		}
	}()
	defer l.onExit()

	for {
		if ctx.Err() != nil {
			return nil
		}

		quit, err := l.Step()
		if err != nil {
			return err
		}
		if quit {
			l.logger.Info("display closed, stopping capture")
			return nil
		}
	}
}

// Step captures and shows one frame.
func (l *Loop) Step() (quit bool, err error) {
	frame, err := l.cam.Read()
	if err != nil || frame.Empty() {
		l.status.Warn("Cannot access webcam.")
		if err == nil {
			err = errors.New("empty frame")
		}
		return false, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	l.seq++
	frame.Seq = l.seq
	metrics.FramesCapturedTotal.Inc()

	l.cell.PublishFrame(frame)
	ov := NewOverlay(l.cell.State())

	// The cell kept its own copy, so the surface may draw on this one.
	quit = l.surface.Show(frame, ov)
	l.status.Update(ov.Status, ov.Live)
	return quit, nil
}

// Headless is a Surface for runs without a window. It never asks to quit.
type Headless struct{}

func (Headless) Show(types.Frame, Overlay) bool { return false }
