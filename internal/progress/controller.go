// Package progress tracks nested in-flight operations behind a single
// visible indicator.
//
// The controller is reentrant: an operation run under it may start
// further operations, and all of them share one indicator whose label
// always shows the innermost description. It assumes one logical flow
// of nested calls; unrelated parallel flows need their own controller.
package progress

import (
	"io"
	"sync"
)

// Option configures a Controller.
type Option func(*Controller)

// WithIndicator sets a custom indicator (for testing).
func WithIndicator(ind Indicator) Option {
	return func(c *Controller) {
		c.indicator = ind
	}
}

// Controller owns the frame stack and the indicator lifecycle.
type Controller struct {
	indicator Indicator

	mu     sync.Mutex
	frames []string
	active bool
}

// NewController creates a Controller rendering to w.
func NewController(w io.Writer, opts ...Option) *Controller {
	c := &Controller{
		indicator: NewSpinner(w),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes op with description pushed onto the frame stack. The
// outermost call shows the indicator; nested calls retarget its label.
// The frame is popped and the indicator repaired whether op succeeds,
// fails or panics.
func (c *Controller) Run(description string, op func() error) error {
	c.push(description)
	defer c.pop()
	return op()
}

// Busy reports whether any operation is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Depth returns the number of nested operations in flight.
func (c *Controller) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *Controller) push(description string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frames = append(c.frames, description)
	if !c.active {
		c.active = true
		c.indicator.Start(description)
		return
	}
	c.indicator.SetText(description)
}

func (c *Controller) pop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Popping with nothing in flight is a programming error, not a
	// runtime condition to tolerate.
	if len(c.frames) == 0 || !c.active {
		panic("progress: pop with no operation in flight")
	}

	c.frames = c.frames[:len(c.frames)-1]
	if len(c.frames) == 0 {
		c.active = false
		c.indicator.Stop()
		return
	}
	c.indicator.SetText(c.frames[len(c.frames)-1])
}
