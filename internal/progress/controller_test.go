package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

// recordingIndicator records every indicator transition.
type recordingIndicator struct {
	mu     sync.Mutex
	events []string
	shown  bool
}

func (r *recordingIndicator) Start(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "start:"+text)
	r.shown = true
}

func (r *recordingIndicator) SetText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "text:"+text)
}

func (r *recordingIndicator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "stop")
	r.shown = false
}

func newTestController() (*Controller, *recordingIndicator) {
	ind := &recordingIndicator{}
	return NewController(io.Discard, WithIndicator(ind)), ind
}

func TestRunSingle(t *testing.T) {
	c, ind := newTestController()

	err := c.Run("building", func() error {
		if !c.Busy() {
			t.Error("expected controller busy during operation")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Busy() {
		t.Error("expected controller idle after operation")
	}
	want := []string{"start:building", "stop"}
	if strings.Join(ind.events, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected events %v", ind.events)
	}
}

func TestRunNested(t *testing.T) {
	c, ind := newTestController()

	err := c.Run("outer", func() error {
		return c.Run("inner", func() error {
			if c.Depth() != 2 {
				t.Errorf("expected depth 2, got %d", c.Depth())
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"start:outer", "text:inner", "text:outer", "stop"}
	if strings.Join(ind.events, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected events %v", ind.events)
	}
}

func TestRunMiddleFailure(t *testing.T) {
	c, ind := newTestController()
	sentinel := errors.New("middle failed")

	var innerRan, outerCompleted bool
	err := c.Run("outer", func() error {
		err := c.Run("middle", func() error {
			// The failing middle operation still runs its own nested call.
			_ = c.Run("inner", func() error {
				innerRan = true
				return nil
			})
			return sentinel
		})
		outerCompleted = true
		return err
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if !innerRan || !outerCompleted {
		t.Error("expected all frames to run despite middle failure")
	}
	if c.Depth() != 0 {
		t.Errorf("expected empty stack, got depth %d", c.Depth())
	}
	if ind.shown {
		t.Error("expected indicator undisplayed after unwinding")
	}

	want := []string{
		"start:outer",
		"text:middle",
		"text:inner",
		"text:middle",
		"text:outer",
		"stop",
	}
	if strings.Join(ind.events, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected events %v", ind.events)
	}
}

func TestRunPanicStillUnwinds(t *testing.T) {
	c, ind := newTestController()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = c.Run("outer", func() error {
			panic("boom")
		})
	}()

	if c.Depth() != 0 {
		t.Errorf("expected empty stack after panic, got depth %d", c.Depth())
	}
	if ind.shown {
		t.Error("expected indicator undisplayed after panic")
	}
}

func TestPopEmptyPanics(t *testing.T) {
	c, _ := newTestController()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on pop with empty stack")
		}
	}()
	c.pop()
}

func TestSequentialRuns(t *testing.T) {
	c, ind := newTestController()

	for _, desc := range []string{"first", "second"} {
		if err := c.Run(desc, func() error { return nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	want := []string{"start:first", "stop", "start:second", "stop"}
	if strings.Join(ind.events, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected events %v", ind.events)
	}
}

func TestSpinnerPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf)

	s.Start("uploading program")
	s.SetText("verifying")
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "uploading program") {
		t.Errorf("expected plain output to contain the text, got %q", out)
	}
	if !strings.Contains(out, "verifying") {
		t.Errorf("expected plain output to contain updated text, got %q", out)
	}
}
