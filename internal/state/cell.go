// Package state holds the single hand-off point between the capture loop and the analysis worker.
package state

import (
	"sync"

	"github.com/andresmejia3/moodgate/internal/types"
)

// Cell keeps the latest captured frame and the latest analysis result.
//
// One mutex guards both slots, so every publish/read pair is atomic with respect to the others.
// Frames are copied on the way in and on the way out: no caller ever holds a buffer the cell owns.
// The frame slot is last-write-wins; an unread frame is overwritten and counted as dropped.
type Cell struct {
	mu sync.Mutex

	frame    []byte
	meta     types.Frame // frame header, Data always nil
	hasFrame bool
	unread   bool

	state types.AnalysisState

	published uint64
	dropped   uint64
	states    uint64
}

// Stats is a point-in-time snapshot of the cell's counters.
type Stats struct {
	FramesPublished uint64
	FramesDropped   uint64
	StatesPublished uint64
}

// New returns a cell holding no frame and the initial analysis state.
func New() *Cell {
	return &Cell{state: types.InitialState()}
}

// PublishFrame stores a private copy of f as the latest frame.
func (c *Cell) PublishFrame(f types.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Reuse the slot's buffer when it is big enough; readers only ever get copies of it.
	if cap(c.frame) < len(f.Data) {
		c.frame = make([]byte, len(f.Data))
	}
	c.frame = c.frame[:len(f.Data)]
	copy(c.frame, f.Data)

	c.meta = f
	c.meta.Data = nil

	if c.unread {
		c.dropped++
	}
	c.hasFrame = true
	c.unread = true
	c.published++
}

// Frame returns a copy of the latest frame, or false if nothing has been published yet.
func (c *Cell) Frame() (types.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasFrame {
		return types.Frame{}, false
	}
	f := c.meta
	f.Data = c.frame
	c.unread = false
	return f.Clone(), true
}

// PublishState replaces the analysis state wholesale.
func (c *Cell) PublishState(s types.AnalysisState) {
	c.mu.Lock()
	c.state = s
	c.states++
	c.mu.Unlock()
}

// State returns the latest analysis state.
func (c *Cell) State() types.AnalysisState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns the cell's counters.
func (c *Cell) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		FramesPublished: c.published,
		FramesDropped:   c.dropped,
		StatesPublished: c.states,
	}
}
