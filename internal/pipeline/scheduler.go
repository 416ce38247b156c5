package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// ErrInvalidWorkers indicates a non-positive worker count.
var ErrInvalidWorkers = errors.New("workers must be at least 1")

// LineProcessor handles one work-list line.
type LineProcessor interface {
	Process(ctx context.Context, line string) Outcome
}

// Compile-time interface verification.
var _ LineProcessor = (*Processor)(nil)

// OutcomeLog receives the failure lines of each chunk.
type OutcomeLog interface {
	Append(entries ...string) error
}

// Progress describes one completed chunk.
type Progress struct {
	Chunk       int // 1-based chunk index.
	Size        int // Lines in the chunk.
	Failed      int // Lines that failed in the chunk.
	Interrupted int // Lines cut short by cancellation.
	Done        int // Lines completed so far across the run.
}

// Summary describes a finished run.
type Summary struct {
	Chunks      int
	Items       int
	Failed      int
	Interrupted int
	Stopped     bool // Run ended early on a stop request.
	Elapsed     time.Duration
}

// Scheduler reads a work list in chunks of W lines and processes each chunk
// on a pool of W workers. A chunk is fully drained before the next is read.
// Reading stops at the first chunk shorter than W.
type Scheduler struct {
	proc       LineProcessor
	workers    int
	stop       <-chan struct{}
	onProgress func(Progress)
	now        func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithWorkers sets the pool size and chunk size.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) { s.workers = n }
}

// WithStop sets a channel that, once closed, ends the run after the
// current chunk drains.
func WithStop(stop <-chan struct{}) SchedulerOption {
	return func(s *Scheduler) { s.stop = stop }
}

// WithProgress sets a callback invoked after each chunk.
func WithProgress(fn func(Progress)) SchedulerOption {
	return func(s *Scheduler) { s.onProgress = fn }
}

// WithSchedulerNow sets the clock (for testing).
func WithSchedulerNow(fn func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = fn }
}

// NewScheduler creates a Scheduler around proc.
func NewScheduler(proc LineProcessor, opts ...SchedulerOption) (*Scheduler, error) {
	if proc == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	s := &Scheduler{
		proc:    proc,
		workers: DefaultWorkers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, s.workers)
	}
	return s, nil
}

// Run processes every line of r. Failures are appended to log once per chunk,
// in completion order. Per-line failures never abort the run; an error is
// returned only for a read or log failure, or when ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, r io.Reader, log OutcomeLog) (Summary, error) {
	start := s.now()
	var sum Summary

	jobs := make(chan string)
	results := make(chan Outcome, s.workers)

	// Workers never fail: every error becomes an Outcome.
	var wg sync.WaitGroup
	for range s.workers {
		wg.Go(func() {
			for line := range jobs {
				results <- s.proc.Process(ctx, line)
			}
		})
	}

	err := s.loop(ctx, bufio.NewReader(r), jobs, results, log, &sum)

	close(jobs)
	wg.Wait()

	sum.Elapsed = s.now().Sub(start)
	return sum, err
}

func (s *Scheduler) loop(ctx context.Context, br *bufio.Reader, jobs chan<- string, results <-chan Outcome, log OutcomeLog, sum *Summary) error {
	for {
		if s.stopRequested() {
			sum.Stopped = true
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := readChunk(br, s.workers)
		if err != nil {
			return fmt.Errorf("reading work list: %w", err)
		}

		if len(chunk) > 0 {
			sum.Chunks++
			p, err := s.dispatch(chunk, jobs, results, log)
			sum.Items += p.Size
			sum.Failed += p.Failed
			sum.Interrupted += p.Interrupted
			if err != nil {
				return err
			}
			if s.onProgress != nil {
				p.Chunk = sum.Chunks
				p.Done = sum.Items
				s.onProgress(p)
			}
		}

		if len(chunk) < s.workers {
			return ctx.Err()
		}
	}
}

// dispatch hands every line of chunk to the pool and waits for all of them.
// The chunk never exceeds the pool size, so sends cannot block on a busy pool.
func (s *Scheduler) dispatch(chunk []string, jobs chan<- string, results <-chan Outcome, log OutcomeLog) (Progress, error) {
	for _, line := range chunk {
		jobs <- line
	}

	p := Progress{Size: len(chunk)}
	var failures []string
	for range chunk {
		o := <-results
		switch {
		case o.Interrupted():
			p.Interrupted++
		case o.Failed():
			p.Failed++
			failures = append(failures, o.LogLine())
		}
	}

	if err := log.Append(failures...); err != nil {
		return p, fmt.Errorf("writing error log: %w", err)
	}
	return p, nil
}

func (s *Scheduler) stopRequested() bool {
	if s.stop == nil {
		return false
	}
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// readChunk reads up to n lines. Lines keep their terminator; a final line
// without one is still returned. Empty result means end of input.
func readChunk(br *bufio.Reader, n int) ([]string, error) {
	chunk := make([]string, 0, n)
	for len(chunk) < n {
		line, err := br.ReadString('\n')
		if line != "" {
			chunk = append(chunk, line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return chunk, nil
}
