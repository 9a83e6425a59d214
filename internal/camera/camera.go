// Package camera adapts gocv capture devices and image files to types.Frame.
package camera

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/andresmejia3/moodgate/internal/types"
	"gocv.io/x/gocv"
)

// Device reads frames from a webcam and resizes them to the working resolution.
type Device struct {
	index   int
	size    image.Point
	vc      *gocv.VideoCapture
	raw     gocv.Mat
	resized gocv.Mat
}

// Open starts the capture device at index.
func Open(index, width, height int) (*Device, error) {
	vc, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: device not available", index)
	}
	return &Device{
		index:   index,
		size:    image.Pt(width, height),
		vc:      vc,
		raw:     gocv.NewMat(),
		resized: gocv.NewMat(),
	}, nil
}

// Read grabs one frame. Any failure is reported; the caller decides whether it is fatal.
func (d *Device) Read() (types.Frame, error) {
	if ok := d.vc.Read(&d.raw); !ok {
		return types.Frame{}, fmt.Errorf("cannot read device %d", d.index)
	}
	if d.raw.Empty() {
		return types.Frame{}, fmt.Errorf("device %d returned an empty frame", d.index)
	}

	gocv.Resize(d.raw, &d.resized, d.size, 0, 0, gocv.InterpolationLinear)
	return FromMat(d.resized)
}

func (d *Device) Close() error {
	d.raw.Close()
	d.resized.Close()
	return d.vc.Close()
}

// LoadImage reads a still image and resizes it like a camera frame.
func LoadImage(path string, width, height int) (types.Frame, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return types.Frame{}, fmt.Errorf("cannot decode image %s", path)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	return FromMat(resized)
}

// FromMat copies an 8-bit BGR Mat into a Frame.
func FromMat(m gocv.Mat) (types.Frame, error) {
	if m.Type() != gocv.MatTypeCV8UC3 {
		return types.Frame{}, errors.New("expected an 8-bit 3-channel image")
	}
	return types.Frame{
		Width:      m.Cols(),
		Height:     m.Rows(),
		Channels:   m.Channels(),
		Data:       m.ToBytes(),
		CapturedAt: time.Now(),
	}, nil
}

// ToMat wraps a Frame's pixels in a new Mat. The caller closes it.
func ToMat(f types.Frame) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
}
