package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/audioset/internal/layout"
)

// ListCmd creates the list command.
// The env parameter provides injectable dependencies for testing.
func ListCmd(env *Env) *cobra.Command {
	var (
		dataset string
		root    string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the segments downloaded for a dataset",
		Long: `List the keys of every finished clip of a dataset, one per line, sorted.

The output is the downloaded-file list read by "audioset stats"
(train_list.txt, eval_list.txt).`,
		Example: `  audioset list --dataset eval -o eval_list.txt
  audioset list --dataset train --root /data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("root") {
				cfg, err := env.ConfigLoader.Load()
				if err != nil {
					return err
				}
				root = cfg.Root
			}
			return runList(env, layout.Dataset{Name: dataset, Root: root}, output)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset name")
	cmd.Flags().StringVar(&root, "root", ".", "Directory holding the dataset directories")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// runList writes the sorted segment keys of ds to output, or to stdout.
func runList(env *Env, ds layout.Dataset, output string) error {
	keys, err := segmentKeys(ds)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('\n')
	}

	if output == "" {
		_, err := fmt.Fprint(env.Stdout, b.String())
		return err
	}

	if err := writeFileAtomic(output, b.String()); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Wrote %d keys to %s\n", len(keys), output)
	return nil
}

// segmentKeys returns the base names of the clips in the segmented directory.
func segmentKeys(ds layout.Dataset) ([]string, error) {
	dir := ds.SegmentedDir()
	if err := requireExists(dir); err != nil {
		return nil, err
	}

	files, err := ds.Clips()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, strings.TrimSuffix(filepath.Base(f), layout.AudioExt))
	}
	slices.Sort(keys)
	return keys, nil
}
