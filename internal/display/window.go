// Package display shows frames with their overlay in a gocv window.
package display

import (
	"image"

	"github.com/andresmejia3/moodgate/internal/camera"
	"github.com/andresmejia3/moodgate/internal/capture"
	"github.com/andresmejia3/moodgate/internal/types"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	keyEsc = 27
	keyQ   = 'q'
)

// Window must be used from the goroutine that created it.
type Window struct {
	win    *gocv.Window
	logger *zap.Logger
}

func NewWindow(title string, logger *zap.Logger) *Window {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Window{win: gocv.NewWindow(title), logger: logger}
}

// Show draws the overlay and displays the frame. Display is best effort: a frame that
// can't be converted is skipped, never fatal.
func (w *Window) Show(frame types.Frame, ov capture.Overlay) bool {
	img, err := camera.ToMat(frame)
	if err != nil {
		w.logger.Warn("skipping frame display", zap.Uint64("frame_seq", frame.Seq), zap.Error(err))
		return w.pollQuit()
	}
	defer img.Close()

	gocv.PutText(&img, ov.Text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, ov.Color, 2)
	w.win.IMShow(img)
	return w.pollQuit()
}

func (w *Window) pollQuit() bool {
	switch w.win.WaitKey(1) {
	case keyEsc, keyQ:
		return true
	}
	return false
}

func (w *Window) Close() error {
	return w.win.Close()
}
