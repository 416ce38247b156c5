package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/audioset/internal/config"
	"github.com/alnah/audioset/internal/errlog"
	"github.com/alnah/audioset/internal/format"
	"github.com/alnah/audioset/internal/layout"
	"github.com/alnah/audioset/internal/pipeline"
	"github.com/alnah/audioset/internal/retry"
	"github.com/alnah/audioset/internal/runlock"
)

// downloadFlagKeys maps download flags to the config keys they override.
var downloadFlagKeys = []struct{ flag, key string }{
	{"workers", config.KeyWorkers},
	{"clip-length", config.KeyClipLength},
	{"sample-rate", config.KeySampleRate},
	{"bit-depth", config.KeyBitDepth},
	{"channels", config.KeyChannels},
	{"timeout", config.KeyToolTimeout},
	{"retries", config.KeyFetchRetries},
	{"root", config.KeyRoot},
	{"url-prefix", config.KeyURLPrefix},
}

// downloadOptions holds the resolved settings of one download run.
type downloadOptions struct {
	input   string
	dataset string
	logDir  string
	cfg     config.Config
}

// DownloadCmd creates the download command.
// The env parameter provides injectable dependencies for testing.
func DownloadCmd(env *Env) *cobra.Command {
	var (
		input   string
		dataset string
		logDir  string
	)
	defaults := config.Defaults()

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download, reformat and trim the clips of a work list",
		Long: `Download the clips listed in a work list.

Each line is "<source_id>_<start_ms>". For every line the source audio is
downloaded with yt-dlp, converted with sox to the configured format, and
trimmed to the clip window. Results land in three directories named after
the dataset:

  <dataset>_downloaded   raw downloads, one per source
  <dataset>_formatted    reformatted audio, one per source
  <dataset>_segmented    trimmed clips, one per line

A file that already exists is never rebuilt, so an interrupted run can be
restarted with the same command. Failed lines are written to
error_<timestamp>.log as "<error>,<source_id>".

Press Ctrl+C once to stop after the current chunk, twice to abort.

Flags override config values (see "audioset config").`,
		Example: `  audioset download -i eval_segments.txt
  audioset download -i train.txt --dataset train --root /data -n 8
  audioset download -i eval.txt --clip-length 0  # keep the full source`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseDownloadOptions(cmd, env, input, dataset, logDir)
			if err != nil {
				return err
			}
			return runDownload(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Work list file, one <source_id>_<start_ms> per line")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset name prefixing the output directories (default: input path)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Directory of the error log (default: working directory)")
	cmd.Flags().IntP("workers", "n", defaults.Workers, "Parallel workers, also the chunk size")
	cmd.Flags().Int("clip-length", defaults.ClipLengthMS, "Clip length in milliseconds (0 keeps the rest of the source)")
	cmd.Flags().Int("sample-rate", defaults.SampleRate, "Sample rate in Hz")
	cmd.Flags().Int("bit-depth", defaults.BitDepth, "Bits per sample")
	cmd.Flags().Int("channels", defaults.Channels, "Number of channels")
	cmd.Flags().Duration("timeout", defaults.ToolTimeout, "Timeout of one tool invocation (0 disables)")
	cmd.Flags().Int("retries", defaults.FetchRetries, "Retries of a failed download")
	cmd.Flags().String("root", defaults.Root, "Directory holding the dataset directories")
	cmd.Flags().String("url-prefix", defaults.URLPrefix, "URL prefix prepended to source ids")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// parseDownloadOptions merges the config with the flags set on cmd.
// Precedence: flag > config file > environment > default.
func parseDownloadOptions(cmd *cobra.Command, env *Env, input, dataset, logDir string) (downloadOptions, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return downloadOptions{}, err
	}

	for _, fk := range downloadFlagKeys {
		if !cmd.Flags().Changed(fk.flag) {
			continue
		}
		if err := cfg.Set(fk.key, cmd.Flags().Lookup(fk.flag).Value.String()); err != nil {
			return downloadOptions{}, fmt.Errorf("--%s: %w", fk.flag, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return downloadOptions{}, err
	}

	if dataset == "" {
		dataset = input
	}

	return downloadOptions{
		input:   input,
		dataset: dataset,
		logDir:  logDir,
		cfg:     cfg,
	}, nil
}

// runDownload executes the download pipeline.
// Order: input exists -> tools -> directories -> run lock -> error log -> batch.
func runDownload(ctx context.Context, env *Env, opts downloadOptions) error {
	cfg := opts.cfg

	// === VALIDATION (fail-fast) ===

	if err := requireExists(opts.input); err != nil {
		return err
	}

	// === SETUP ===

	bins, err := env.ToolResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	env.ToolResolver.CheckVersions(ctx, bins, env.Stderr)

	ds := layout.Dataset{Name: opts.dataset, Root: cfg.Root}
	if err := ds.EnsureDirs(); err != nil {
		return err
	}

	lock, err := runlock.Acquire(ds.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: failed to release run lock: %v\n", err)
		}
	}()

	start := env.Now()
	log, err := errlog.Open(opts.logDir, start)
	if err != nil {
		return err
	}
	defer func() {
		if err := log.Close(); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: failed to close error log: %v\n", err)
		}
	}()

	inv, err := env.InvokerFactory.NewInvoker(bins, cfg.ToolTimeout)
	if err != nil {
		return err
	}

	backoff := retry.Default()
	backoff.MaxRetries = cfg.FetchRetries
	proc, err := pipeline.NewProcessor(ds, inv,
		pipeline.WithFormat(cfg.Format()),
		pipeline.WithClipLength(cfg.ClipLengthMS),
		pipeline.WithURLPrefix(cfg.URLPrefix),
		pipeline.WithRetry(backoff),
		pipeline.WithOutput(env.Stderr),
	)
	if err != nil {
		return err
	}

	sched, err := pipeline.NewScheduler(proc,
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithStop(env.Drain),
		pipeline.WithSchedulerNow(env.Now),
		pipeline.WithProgress(func(p pipeline.Progress) {
			fmt.Fprintf(env.Stderr, "Chunk %d done: %d segments, %d failed (%s total)\n",
				p.Chunk, p.Size, p.Failed, format.Count(p.Done))
		}),
	)
	if err != nil {
		return err
	}

	// #nosec G304 -- user-specified work list
	f, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("cannot open work list: %w", err)
	}
	defer func() { _ = f.Close() }()

	// === BATCH ===

	fmt.Fprintf(env.Stderr, "Processing %s into %s with %d workers (clip %s, timeout %s)...\n",
		opts.input, ds.SegmentedDir(), cfg.Workers, clipDescription(cfg.ClipLengthMS), format.Timeout(cfg.ToolTimeout))

	sum, runErr := sched.Run(ctx, f, log)
	printDownloadSummary(env, sum, log)

	if runErr != nil {
		return runErr
	}
	if sum.Stopped {
		return fmt.Errorf("%w: stopped after %d chunks", ErrInterrupted, sum.Chunks)
	}
	return nil
}

// printDownloadSummary reports the totals of a run.
func printDownloadSummary(env *Env, sum pipeline.Summary, log *errlog.Log) {
	ok := sum.Items - sum.Failed - sum.Interrupted
	fmt.Fprintf(env.Stderr, "Processed %s segments in %s: %s succeeded, %s failed\n",
		format.Count(sum.Items), format.Duration(sum.Elapsed), format.Ratio(ok, sum.Items), format.Count(sum.Failed))
	if sum.Interrupted > 0 {
		fmt.Fprintf(env.Stderr, "%s segments interrupted, rerun to resume\n", format.Count(sum.Interrupted))
	}
	if log.Lines() > 0 {
		fmt.Fprintf(env.Stderr, "Failures logged to %s\n", log.Path())
	}
}

// clipDescription renders a clip length in milliseconds.
func clipDescription(ms int) string {
	if ms/1000 == 0 {
		return "to end"
	}
	return format.Duration(time.Duration(ms/1000) * time.Second)
}
