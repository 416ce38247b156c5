package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Stage is how far the user has escalated with repeated Ctrl+C.
type Stage int

const (
	// Running means no interrupt was received.
	Running Stage = iota
	// Draining means the current chunk finishes, then the run stops.
	Draining
	// Aborting means the run context is canceled and child processes are killed.
	Aborting
)

// String returns the string representation of the Stage.
func (s Stage) String() string {
	switch s {
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Aborting:
		return "Aborting"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

const (
	drainMessage = "\nFinishing current chunk... (Ctrl+C again to abort)"
	abortMessage = "\nAborting..."
	forceMessage = "\nAborted."
)

// Handler escalates on each Ctrl+C:
// the first closes the Draining channel so the batch stops after the chunk in
// flight, the second cancels the context, the third exits immediately.
type Handler struct {
	mu         sync.Mutex
	stage      Stage
	stopped    bool
	drain      chan struct{}
	cancelFunc context.CancelFunc
	done       chan struct{} // Signals listen goroutine to exit

	// Injected dependencies (for testing)
	exitFunc func(int)
	stderr   io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	// Stderr is the writer for user-facing messages.
	// Must be safe for concurrent writes from multiple goroutines.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is canceled on the second interrupt.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 3)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return newHandler(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	exitFunc := opts.ExitFunc
	if exitFunc == nil {
		exitFunc = os.Exit
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		drain:      make(chan struct{}),
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   exitFunc,
		stderr:     stderr,
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if !h.escalate() {
				return
			}
		}
	}
}

// escalate advances one stage. It returns false once the listener should exit.
func (h *Handler) escalate() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}

	switch h.stage {
	case Running:
		h.stage = Draining
		close(h.drain)
		h.mu.Unlock()
		fmt.Fprintln(h.stderr, drainMessage)
		return true
	case Draining:
		h.stage = Aborting
		h.cancelFunc()
		h.mu.Unlock()
		fmt.Fprintln(h.stderr, abortMessage)
		return true
	default:
		h.mu.Unlock()
		fmt.Fprintln(h.stderr, forceMessage)
		h.exitFunc(ExitInterrupt)
		return false // In case exitFunc doesn't actually exit (tests)
	}
}

// Draining returns a channel closed on the first interrupt.
func (h *Handler) Draining() <-chan struct{} {
	return h.drain
}

// Stage returns the current escalation stage.
func (h *Handler) Stage() Stage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stage
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	return h.Stage() != Running
}

// Stop cleans up the handler. Should be called when done.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
	h.cancelFunc()
}
