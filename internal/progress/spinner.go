package progress

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Default "spinner" frames using unicode, for macOS and Linux terminals
// that support it.
var unicodeSpinnerFrames = []string{"◐", "◓", "◑", "◒"}

// ASCII frames for Windows terminals that don't support unicode.
var asciiSpinnerFrames = []string{"<", "^", ">", "v"}

// Indicator is the visible busy indicator driven by the Controller.
type Indicator interface {
	// Start shows the indicator with the given text.
	Start(text string)
	// SetText replaces the indicator text while it keeps running.
	SetText(text string)
	// Stop tears the indicator down.
	Stop()
}

// Spinner renders an animated busy indicator on a terminal. On a
// non-terminal writer it degrades to printing one plain line per text
// change.
type Spinner struct {
	frames []string
	writer io.Writer
	isTerm bool

	mu     sync.Mutex
	text   string
	stop   chan struct{}
	ticker *time.Ticker
}

// NewSpinner creates a Spinner writing to w.
func NewSpinner(w io.Writer) *Spinner {
	frames := unicodeSpinnerFrames
	if runtime.GOOS == "windows" {
		frames = asciiSpinnerFrames
	}
	return &Spinner{
		frames: frames,
		writer: w,
		isTerm: isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Start implements Indicator.
func (s *Spinner) Start(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()

	if !s.isTerm {
		fmt.Fprintf(s.writer, " •  %s ...\n", text)
		return
	}

	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(200 * time.Millisecond)
	go s.spin()
}

// SetText implements Indicator.
func (s *Spinner) SetText(text string) {
	s.mu.Lock()
	// Blank out the previous line when the new text is shorter.
	if s.isTerm && len(text) < len(s.text) {
		fmt.Fprintf(s.writer, "\r%*s", len(s.text)+4, "")
	}
	s.text = text
	s.mu.Unlock()

	if !s.isTerm {
		fmt.Fprintf(s.writer, " •  %s ...\n", text)
	}
}

// Stop implements Indicator.
func (s *Spinner) Stop() {
	if !s.isTerm {
		return
	}
	close(s.stop)
	s.ticker.Stop()

	s.mu.Lock()
	fmt.Fprintf(s.writer, "\r%*s\r", len(s.text)+4, "")
	s.mu.Unlock()
}

func (s *Spinner) spin() {
	frame := 0
	paint := color.New(color.FgCyan).SprintFunc()
	for {
		select {
		case <-s.stop:
			return
		case <-s.ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s", paint(s.frames[frame%len(s.frames)]), s.text)
			s.mu.Unlock()
			frame++
		}
	}
}
