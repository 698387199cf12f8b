package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a status line while a pipeline stage runs. It draws
// nothing when its writer is not a terminal, so piped and logged output
// stay clean.
type Spinner struct {
	out     io.Writer
	message string

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// startSpinner starts a spinner on the status writer. It stops by itself
// when ctx is cancelled; Stop must still be called to clear the line.
func startSpinner(ctx context.Context, message string) *Spinner {
	s := newSpinner(statusOut, message)
	s.start(ctx, isTerminal(statusOut))
	return s
}

func newSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *Spinner) start(ctx context.Context, animate bool) {
	if !animate {
		close(s.stopped)
		return
	}
	go func() {
		defer close(s.stopped)
		defer s.clear()
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), StyleDim.Render(s.message))
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and clears the line. It is safe to call more
// than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.stopped
}

func (s *Spinner) clear() {
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len([]rune(s.message))+2))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
