package tool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Tool names as reported in Result.Tool and error messages.
const (
	NameYtDlp = "yt-dlp"
	NameSox   = "sox"
)

// Default audio format for the reformat step.
const (
	DefaultSampleRate = 44100
	DefaultBitDepth   = 16
	DefaultChannels   = 1
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 10 * time.Minute

// Binaries holds resolved paths to the external tools.
type Binaries struct {
	YtDlp string
	Sox   string
}

// Format describes the target audio format of the reformat step.
type Format struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// DefaultFormat returns 44.1kHz, 16-bit, mono.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, BitDepth: DefaultBitDepth, Channels: DefaultChannels}
}

// Validate checks that all fields are positive.
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.BitDepth <= 0 || f.Channels <= 0 {
		return fmt.Errorf("invalid audio format %+v: all fields must be positive", f)
	}
	return nil
}

// Window is the extract window of the trim step.
// LengthSeconds == 0 means from StartSeconds to the end of the source.
type Window struct {
	StartSeconds  int
	LengthSeconds int
}

// Result describes one finished tool invocation.
type Result struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string // Tail of combined stdout/stderr.
	Elapsed  time.Duration
}

// Invoker runs the fetch, reformat and trim tools.
// It does not check whether the destination already exists: callers decide
// whether a step is needed.
type Invoker struct {
	bins    Binaries
	timeout time.Duration

	runner commandRunner
	fs     fileSystem
	now    func() time.Time
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithTimeout sets the per-invocation timeout. Zero disables it.
func WithTimeout(d time.Duration) InvokerOption {
	return func(inv *Invoker) { inv.timeout = d }
}

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) InvokerOption {
	return func(inv *Invoker) { inv.runner = r }
}

// WithFileSystem sets the filesystem implementation (for testing).
func WithFileSystem(fs fileSystem) InvokerOption {
	return func(inv *Invoker) { inv.fs = fs }
}

// WithNow sets the clock used to measure Elapsed (for testing).
func WithNow(fn func() time.Time) InvokerOption {
	return func(inv *Invoker) { inv.now = fn }
}

// NewInvoker creates an Invoker for the given binaries.
func NewInvoker(bins Binaries, opts ...InvokerOption) (*Invoker, error) {
	if bins.YtDlp == "" {
		return nil, fmt.Errorf("%w: %s path cannot be empty", ErrNotFound, NameYtDlp)
	}
	if bins.Sox == "" {
		return nil, fmt.Errorf("%w: %s path cannot be empty", ErrNotFound, NameSox)
	}

	inv := &Invoker{
		bins:    bins,
		timeout: DefaultTimeout,
		runner:  osCommandRunner{},
		fs:      osFileSystem{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// Fetch downloads the best available audio of url into destPath.
// yt-dlp picks the intermediate extension itself, so the output template is
// derived from destPath and the audio is extracted to destPath's extension.
func (inv *Invoker) Fetch(ctx context.Context, sourceID, url, destPath string) (Result, error) {
	ext := strings.TrimPrefix(filepath.Ext(destPath), ".")
	if ext == "" {
		return Result{Tool: NameYtDlp}, fmt.Errorf("fetch %s: destination %q has no extension", sourceID, destPath)
	}
	template := strings.TrimSuffix(destPath, filepath.Ext(destPath)) + ".%(ext)s"

	res, err := inv.run(ctx, NameYtDlp, inv.bins.YtDlp, fetchArgs(url, template, ext))
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", sourceID, err)
	}
	if _, err := inv.fs.Stat(destPath); err != nil {
		return res, fmt.Errorf("fetch %s: %w: %s", sourceID, ErrNoOutput, destPath)
	}
	return res, nil
}

// Reformat resamples src into dest with the given format.
// dest only appears once sox has finished writing it.
func (inv *Invoker) Reformat(ctx context.Context, src, dest string, f Format) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{Tool: NameSox}, err
	}
	res, err := inv.produce(ctx, dest, func(tmp string) []string {
		return reformatArgs(src, tmp, f)
	})
	if err != nil {
		return res, fmt.Errorf("reformat %s: %w", filepath.Base(src), err)
	}
	return res, nil
}

// Trim extracts w from src into dest.
func (inv *Invoker) Trim(ctx context.Context, src, dest string, w Window) (Result, error) {
	if w.StartSeconds < 0 || w.LengthSeconds < 0 {
		return Result{Tool: NameSox}, fmt.Errorf("invalid trim window %+v", w)
	}
	res, err := inv.produce(ctx, dest, func(tmp string) []string {
		return trimArgs(src, tmp, w)
	})
	if err != nil {
		return res, fmt.Errorf("trim %s: %w", filepath.Base(dest), err)
	}
	return res, nil
}

// produce runs sox writing into a temporary sibling of dest, then renames it
// into place. The temp name keeps dest's extension since sox picks the output
// format from it.
func (inv *Invoker) produce(ctx context.Context, dest string, argsFor func(tmp string) []string) (Result, error) {
	tmp, err := inv.reserveTemp(dest)
	if err != nil {
		return Result{Tool: NameSox}, err
	}

	res, err := inv.run(ctx, NameSox, inv.bins.Sox, argsFor(tmp))
	if err != nil {
		_ = inv.fs.Remove(tmp)
		return res, err
	}
	if _, err := inv.fs.Stat(tmp); err != nil {
		return res, fmt.Errorf("%w: %s", ErrNoOutput, dest)
	}
	if err := inv.fs.Rename(tmp, dest); err != nil {
		_ = inv.fs.Remove(tmp)
		return res, fmt.Errorf("install %s: %w", filepath.Base(dest), err)
	}
	return res, nil
}

// reserveTemp picks an unused temporary path next to dest and leaves it absent,
// so that a missing file after a successful run means the tool wrote nothing.
func (inv *Invoker) reserveTemp(dest string) (string, error) {
	dir, base := filepath.Split(dest)
	ext := filepath.Ext(base)
	pattern := "." + strings.TrimSuffix(base, ext) + ".*" + ext

	f, err := inv.fs.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("cannot create temp file: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	if err := inv.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("cannot release temp file: %w", err)
	}
	return name, nil
}

// run executes one tool and classifies its failure.
func (inv *Invoker) run(ctx context.Context, name, bin string, args []string) (Result, error) {
	runCtx := ctx
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	start := inv.now()
	code, output, err := inv.runner.Run(runCtx, bin, args)
	res := Result{
		Tool:     name,
		Args:     args,
		ExitCode: code,
		Output:   output,
		Elapsed:  inv.now().Sub(start),
	}

	switch {
	case ctx.Err() != nil:
		return res, ctx.Err()
	case err == nil && code == 0:
		return res, nil
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%w: %s killed after %v", ErrTimeout, name, inv.timeout)
	case err != nil:
		return res, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
	case code != 0:
		if reason := lastLine(output); reason != "" {
			return res, fmt.Errorf("%w: %s exited with status %d: %s", ErrToolFailed, name, code, reason)
		}
		return res, fmt.Errorf("%w: %s exited with status %d", ErrToolFailed, name, code)
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Argument builders
// ---------------------------------------------------------------------------

// fetchArgs builds yt-dlp arguments: best audio only, extracted to format.
func fetchArgs(url, outputTemplate, format string) []string {
	return []string{
		"-f", "ba",
		"-x",
		"--audio-format", format,
		"--no-playlist",
		"--no-progress",
		"-o", outputTemplate,
		url,
	}
}

// reformatArgs builds sox arguments for resampling with guard against clipping.
func reformatArgs(src, dest string, f Format) []string {
	return []string{
		src,
		"-G",
		"-c", strconv.Itoa(f.Channels),
		"-b", strconv.Itoa(f.BitDepth),
		"-r", strconv.Itoa(f.SampleRate),
		dest,
	}
}

// trimArgs builds sox trim arguments. A zero length trims to the end.
func trimArgs(src, dest string, w Window) []string {
	args := []string{src, dest, "trim", strconv.Itoa(w.StartSeconds)}
	if w.LengthSeconds > 0 {
		args = append(args, strconv.Itoa(w.LengthSeconds))
	}
	return args
}
