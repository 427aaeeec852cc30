package render

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a braille frame on the current line while a reply is in
// flight. Start and Stop are safe to call from the rendering goroutine in any
// order; Stop clears the line.
type Spinner struct {
	out io.Writer

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewSpinner returns an idle spinner writing to out.
func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{out: out}
}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(s.stop, s.stopped)
}

// Stop ends the animation and clears the spinner line. Calling Stop on an
// idle spinner is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.stopped
	s.stop = nil
	s.stopped = nil
}

func (s *Spinner) run(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	frame := 0
	for {
		select {
		case <-stop:
			fmt.Fprint(s.out, "\r \r")
			return
		case <-ticker.C:
			fmt.Fprintf(s.out, "\r%s", spinnerFrames[frame%len(spinnerFrames)])
			frame++
		}
	}
}
