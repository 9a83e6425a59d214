package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/andresmejia3/moodgate/internal/emotion"
	"github.com/andresmejia3/moodgate/internal/types"
	"github.com/andresmejia3/moodgate/internal/utils"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Ops understood by python/worker.py.
const (
	OpLandmarks = "landmarks"
	OpEmotion   = "emotion"
)

// maxResponse guards against a corrupt length header allocating gigabytes.
const maxResponse = 16 << 20

// ErrIDMismatch means a response answered some other request. The stream is out of sync.
var ErrIDMismatch = errors.New("python worker response id mismatch")

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("python worker is closed")

// Config selects the interpreter and script.
type Config struct {
	Python string
	Script string
}

type PythonWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	mu        sync.Mutex // serializes request/response pairs
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// request is one msgpack message to Python. Frame pixels travel as raw BGR.
type request struct {
	ID       string `msgpack:"id"`
	Op       string `msgpack:"op"`
	Width    int    `msgpack:"w"`
	Height   int    `msgpack:"h"`
	Channels int    `msgpack:"c"`
	Data     []byte `msgpack:"data"`

	Actions          []string `msgpack:"actions,omitempty"`
	EnforceDetection bool     `msgpack:"enforce_detection"`
	DetectorBackend  string   `msgpack:"detector_backend,omitempty"`
}

type response struct {
	ID    string `msgpack:"id"`
	OK    bool   `msgpack:"ok"`
	Error string `msgpack:"error"`

	// Landmarks are normalized [x, y] pairs; empty when no face was found.
	Landmarks [][2]float64       `msgpack:"landmarks"`
	Dominant  string             `msgpack:"dominant"`
	Scores    map[string]float64 `msgpack:"scores"`
}

func NewPythonWorker(ctx context.Context, id int, cfg Config) (*PythonWorker, error) {
	py := utils.NewSafeCommand(ctx, cfg.Python, "-u", cfg.Script)

	// Side-channel pipe (FD 3) so stray prints on stdout can't corrupt responses
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Only the child holds the write end now
	w.Close()

	return &PythonWorker{
		ID:       id,
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
	}, nil
}

// Communicate sends one [Length][Data] message and reads one back.
// Callers must hold w.mu.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err // a crashed interpreter surfaces here as EOF
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("python worker response too large: %d bytes", respLen)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

func (w *PythonWorker) call(ctx context.Context, req request) (response, error) {
	if err := ctx.Err(); err != nil {
		return response{}, err
	}
	req.ID = uuid.NewString()

	body, err := msgpack.Marshal(&req)
	if err != nil {
		return response{}, fmt.Errorf("failed to encode request: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed.Load() {
		return response{}, ErrClosed
	}

	raw, err := w.Communicate(body)
	if err != nil {
		return response{}, fmt.Errorf("python worker %d: %w", w.ID, err)
	}

	var resp response
	if err := msgpack.Unmarshal(raw, &resp); err != nil {
		return response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.ID != req.ID {
		return response{}, fmt.Errorf("%w: sent %s, got %s", ErrIDMismatch, req.ID, resp.ID)
	}
	if !resp.OK {
		return response{}, fmt.Errorf("python worker error: %s", resp.Error)
	}
	return resp, nil
}

func frameRequest(op string, f types.Frame) request {
	return request{
		Op:       op,
		Width:    f.Width,
		Height:   f.Height,
		Channels: f.Channels,
		Data:     f.Data,
	}
}

// DetectLandmarks runs the face mesh on a frame. It returns nil when no face is found.
func (w *PythonWorker) DetectLandmarks(ctx context.Context, frame types.Frame) ([]types.Point, error) {
	resp, err := w.call(ctx, frameRequest(OpLandmarks, frame))
	if err != nil {
		return nil, err
	}
	if len(resp.Landmarks) == 0 {
		return nil, nil
	}

	points := make([]types.Point, len(resp.Landmarks))
	for i, p := range resp.Landmarks {
		points[i] = types.Point{X: p[0], Y: p[1]}
	}
	return points, nil
}

// Analyze runs the emotion model on a frame.
func (w *PythonWorker) Analyze(ctx context.Context, frame types.Frame, opts emotion.Options) (emotion.Analysis, error) {
	req := frameRequest(OpEmotion, frame)
	req.Actions = []string{opts.Axis}
	req.EnforceDetection = opts.EnforceDetection
	req.DetectorBackend = opts.Backend

	resp, err := w.call(ctx, req)
	if err != nil {
		return emotion.Analysis{}, err
	}
	return emotion.Analysis{Dominant: resp.Dominant, Scores: resp.Scores}, nil
}

// Close shuts both pipes so the script exits, then reaps it. It does not wait for an
// in-flight call: closing the pipes fails that call instead. Safe to call twice.
func (w *PythonWorker) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.Stdin.Close()
		w.DataPipe.Close()
		if w.Cmd != nil {
			w.closeErr = w.Cmd.Wait()
		}
	})
	return w.closeErr
}
