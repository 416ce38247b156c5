package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/audioset/internal/format"
	"github.com/alnah/audioset/internal/layout"
	"github.com/alnah/audioset/internal/publish"
)

// publishOptions holds the settings of one publish run.
type publishOptions struct {
	dataset layout.Dataset
	bucket  string
	prefix  string
	workers int
}

// PublishCmd creates the publish command.
// The env parameter provides injectable dependencies for testing.
func PublishCmd(env *Env) *cobra.Command {
	var (
		opts publishOptions
		root string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the clips of a dataset to an S3-compatible bucket",
		Long: `Upload every clip of <dataset>_segmented to <bucket>/<prefix>/<key>.wav.

The bucket is created when missing. Objects that already exist are skipped,
so an interrupted upload can be restarted with the same command.

Connection settings are read from the environment (or a .env file):
  ` + publish.EnvEndpoint + `     host:port of the object store
  ` + publish.EnvAccessKey + `   access key
  ` + publish.EnvSecretKey + `   secret key
  ` + publish.EnvSecure + `       use TLS (true/false)`,
		Example: `  audioset publish --dataset eval --bucket audioset
  audioset publish --dataset train --root /data --bucket audioset --prefix v1/train -n 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("root") {
				cfg, err := env.ConfigLoader.Load()
				if err != nil {
					return err
				}
				root = cfg.Root
			}
			opts.dataset.Root = root
			return runPublish(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataset.Name, "dataset", "", "Dataset name")
	cmd.Flags().StringVar(&root, "root", ".", "Directory holding the dataset directories")
	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "Destination bucket")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Object name prefix (default: dataset base name)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "n", publish.DefaultWorkers, "Concurrent uploads")

	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("bucket")

	return cmd
}

// runPublish uploads the segmented clips of opts.dataset.
func runPublish(ctx context.Context, env *Env, opts publishOptions) error {
	// === VALIDATION (fail-fast) ===

	if err := requireExists(opts.dataset.SegmentedDir()); err != nil {
		return err
	}
	prefix := opts.prefix
	if prefix == "" {
		prefix = filepath.Base(opts.dataset.Name)
	}

	// === SETUP ===

	store, err := env.StoreFactory.NewStore(env.Getenv)
	if err != nil {
		return err
	}
	uploader, err := publish.NewUploader(store, opts.bucket,
		publish.WithPrefix(prefix),
		publish.WithWorkers(opts.workers),
		publish.WithOutput(env.Stderr),
	)
	if err != nil {
		return err
	}

	// === UPLOAD ===

	fmt.Fprintf(env.Stderr, "Publishing %s to %s/%s...\n", opts.dataset.SegmentedDir(), opts.bucket, prefix)

	sum, err := uploader.PublishDataset(ctx, opts.dataset)
	for _, f := range sum.Failures {
		fmt.Fprintf(env.Stderr, "Error: %s: %v\n", f.Path, f.Err)
	}
	fmt.Fprintf(env.Stderr, "Uploaded %s files (%s), skipped %s, %s failed\n",
		format.Count(sum.Uploaded), format.Size(sum.Bytes), format.Count(sum.Skipped), format.Count(len(sum.Failures)))
	return err
}
