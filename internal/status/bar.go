// Package status renders the one-line terminal status shown while watching.
package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar is a spinner counting frames, described by the latest liveness verdict.
type Bar struct {
	mu     sync.Mutex
	w      io.Writer
	bar    *progressbar.ProgressBar
	text   string
	live   bool
	frames int
}

func NewBar(w io.Writer) *Bar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("🎥 Waiting for camera"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
	)
	return &Bar{w: w, bar: bar}
}

// Describe formats the description for a verdict; green when live, red otherwise.
func Describe(text string, live bool) string {
	if live {
		return fmt.Sprintf("[green]%s[reset]", text)
	}
	return fmt.Sprintf("[red]%s[reset]", text)
}

// Update counts one frame and re-describes the bar only when the verdict text changes.
func (b *Bar) Update(text string, live bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text != b.text || live != b.live || b.frames == 0 {
		b.text, b.live = text, live
		b.bar.Describe(Describe(text, live))
	}
	b.frames++
	b.bar.Add(1)
}

// Warn prints a line above the spinner.
func (b *Bar) Warn(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bar.Clear()
	fmt.Fprintf(b.w, "\n⚠️  %s\n", text)
}

// Frames returns how many frames were counted.
func (b *Bar) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Text returns the current verdict text.
func (b *Bar) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Finish leaves the final state on screen and moves to a new line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Finish()
	fmt.Fprintln(b.w)
}
