package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alnah/audioset/internal/layout"
	"github.com/alnah/audioset/internal/retry"
	"github.com/alnah/audioset/internal/segment"
	"github.com/alnah/audioset/internal/tool"
)

// Invoker runs the three external tools.
type Invoker interface {
	Fetch(ctx context.Context, sourceID, url, destPath string) (tool.Result, error)
	Reformat(ctx context.Context, src, dest string, f tool.Format) (tool.Result, error)
	Trim(ctx context.Context, src, dest string, w tool.Window) (tool.Result, error)
}

// Compile-time interface verification.
var _ Invoker = (*tool.Invoker)(nil)

// DefaultClipLengthMS is the clip duration used when none is configured.
const DefaultClipLengthMS = 10000

// Processor turns one work-list line into its three artifacts.
//
// Each artifact is produced only if its file is missing. Existence is checked
// per file: a missing download is fetched again even if the clip exists.
// Concurrent calls targeting the same file are collapsed into one execution.
type Processor struct {
	dataset     layout.Dataset
	invoker     Invoker
	format      tool.Format
	clipSeconds int
	urlPrefix   string
	retry       retry.Config

	out    io.Writer
	stat   func(name string) (os.FileInfo, error)
	flight singleflight.Group
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithFormat sets the reformat target.
func WithFormat(f tool.Format) ProcessorOption {
	return func(p *Processor) { p.format = f }
}

// WithClipLength sets the clip length in milliseconds. Zero trims to the end of the source.
func WithClipLength(ms int) ProcessorOption {
	return func(p *Processor) { p.clipSeconds = segment.ClipSeconds(ms) }
}

// WithURLPrefix sets the prefix turning a source id into a URL.
func WithURLPrefix(prefix string) ProcessorOption {
	return func(p *Processor) { p.urlPrefix = prefix }
}

// WithRetry sets the fetch backoff.
func WithRetry(cfg retry.Config) ProcessorOption {
	return func(p *Processor) { p.retry = cfg }
}

// WithOutput sets the writer for progress messages.
// Messages from concurrent segments are serialized.
func WithOutput(w io.Writer) ProcessorOption {
	return func(p *Processor) { p.out = w }
}

// WithStat sets the file existence probe (for testing).
func WithStat(fn func(name string) (os.FileInfo, error)) ProcessorOption {
	return func(p *Processor) { p.stat = fn }
}

// NewProcessor creates a Processor for the dataset.
func NewProcessor(ds layout.Dataset, inv Invoker, opts ...ProcessorOption) (*Processor, error) {
	if ds.Name == "" {
		return nil, fmt.Errorf("dataset name cannot be empty")
	}
	if inv == nil {
		return nil, fmt.Errorf("invoker cannot be nil")
	}

	p := &Processor{
		dataset:     ds,
		invoker:     inv,
		format:      tool.DefaultFormat(),
		clipSeconds: segment.ClipSeconds(DefaultClipLengthMS),
		urlPrefix:   segment.DefaultURLPrefix,
		retry:       retry.Default(),
		out:         io.Discard,
		stat:        os.Stat,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.format.Validate(); err != nil {
		return nil, err
	}
	p.out = &syncWriter{w: p.out}
	return p, nil
}

// Process handles one work-list line. It never returns an error directly:
// every failure is captured in the Outcome so the batch can continue.
func (p *Processor) Process(ctx context.Context, line string) Outcome {
	o := Outcome{Line: strings.TrimRight(line, "\r\n")}

	seg, err := segment.Parse(line)
	if err != nil {
		o.Err = err
		p.printf("Error: %v\n", err)
		return o
	}
	o.Key = seg.Key()
	o.SourceID = seg.SourceID

	paths := layout.Resolve(p.dataset, seg)

	steps := []struct {
		step   Step
		target string
		run    func() error
	}{
		{StepFetch, paths.DownloadPath, func() error { return p.fetch(ctx, seg, paths.DownloadPath) }},
		{StepReformat, paths.FormattedPath, func() error {
			p.printf("[%s] Reformatting %s...\n", o.Key, seg.SourceID)
			_, err := p.invoker.Reformat(ctx, paths.DownloadPath, paths.FormattedPath, p.format)
			return err
		}},
		{StepTrim, paths.SegmentedPath, func() error {
			w := tool.Window{StartSeconds: seg.StartSeconds(), LengthSeconds: p.clipSeconds}
			p.printf("[%s] Trimming %s...\n", o.Key, describeWindow(w))
			_, err := p.invoker.Trim(ctx, paths.FormattedPath, paths.SegmentedPath, w)
			return err
		}},
	}

	for _, s := range steps {
		ran, err := p.ensure(s.target, s.run)
		if err != nil {
			o.Err = err
			if !o.Interrupted() {
				p.printf("[%s] Error: %v\n", o.Key, err)
			}
			return o
		}
		if ran {
			o.Ran = append(o.Ran, s.step)
		} else {
			o.Skipped = append(o.Skipped, s.step)
			p.printf("[%s] File %s already exists.\n", o.Key, filepath.Base(s.target))
		}
	}

	p.printf("[%s] Done\n", o.Key)
	return o
}

// ensure runs produce unless target exists. Callers racing on the same target
// share one check-and-produce execution and its result.
func (p *Processor) ensure(target string, produce func() error) (bool, error) {
	v, err, _ := p.flight.Do(target, func() (any, error) {
		exists, err := p.exists(target)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
		return true, produce()
	})
	ran, _ := v.(bool)
	return ran, err
}

// fetch downloads the source audio, retrying transient tool failures.
func (p *Processor) fetch(ctx context.Context, seg segment.Segment, dest string) error {
	p.printf("[%s] Downloading %s...\n", seg.Key(), seg.SourceID)

	cfg := p.retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		p.printf("[%s] Retrying download of %s in %v (attempt %d): %v\n", seg.Key(), seg.SourceID, wait, attempt, err)
	}
	return retry.Do(ctx, cfg, func() error {
		_, err := p.invoker.Fetch(ctx, seg.SourceID, seg.URL(p.urlPrefix), dest)
		return err
	}, isTransient)
}

// exists reports whether name is present. Errors other than "not exist"
// (permission denied, I/O error) are returned.
func (p *Processor) exists(name string) (bool, error) {
	_, err := p.stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("cannot access %s: %w", name, err)
}

func (p *Processor) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// isTransient reports whether a fetch failure is worth retrying.
// Timeouts are not retried: a hung download would hold the worker again.
func isTransient(err error) bool {
	return errors.Is(err, tool.ErrToolFailed) || errors.Is(err, tool.ErrNoOutput)
}

// describeWindow renders a trim window for progress messages.
func describeWindow(w tool.Window) string {
	if w.LengthSeconds == 0 {
		return fmt.Sprintf("from %ds to end", w.StartSeconds)
	}
	return fmt.Sprintf("%ds-%ds", w.StartSeconds, w.StartSeconds+w.LengthSeconds)
}

// syncWriter serializes writes from concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
