package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/audioset/internal/format"
	"github.com/alnah/audioset/internal/labels"
)

// statsSources lists the tables stats reads from its source directory.
var statsSources = []string{
	labels.ClassLabelsFile,
	labels.StrongTrainFile,
	labels.StrongEvalFile,
	labels.WeakTrainBalancedFile,
	labels.WeakTrainUnbalancedFile,
	labels.WeakEvalFile,
}

// StatsCmd creates the stats command.
// The env parameter provides injectable dependencies for testing.
func StatsCmd(env *Env) *cobra.Command {
	var p labels.ReportPaths

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Select the most frequent classes and count their annotations",
		Long: `Build the class statistics of the corpus.

Reads the label table and the strong and weak annotation tables from --src:

  ` + strings.Join(statsSources, "\n  ") + `

selects the --top classes with the most strong train events, filters the
strong tables by those classes and by the downloaded file lists (see
"audioset list"), and writes the filtered tables, the selected classes and
files, and three count tables to --out.`,
		Example: `  audioset stats --src metadata --out stats
  audioset stats --src metadata --out stats --top 50 --train-list train_list.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(env, p)
		},
	}

	cmd.Flags().StringVar(&p.Src, "src", ".", "Directory holding the label and annotation tables")
	cmd.Flags().StringVar(&p.Out, "out", ".", "Output directory")
	cmd.Flags().IntVar(&p.Top, "top", labels.DefaultTop, "Number of classes to select")
	cmd.Flags().StringVar(&p.TrainList, "train-list", "", "Downloaded train keys (default: <out>/"+labels.DefaultTrainList+")")
	cmd.Flags().StringVar(&p.EvalList, "eval-list", "", "Downloaded eval keys (default: <out>/"+labels.DefaultEvalList+")")

	return cmd
}

// runStats checks the inputs and runs the report.
func runStats(env *Env, p labels.ReportPaths) error {
	// === VALIDATION (fail-fast) ===

	for _, name := range statsSources {
		if err := requireExists(filepath.Join(p.Src, name)); err != nil {
			return err
		}
	}
	trainList, evalList := p.TrainList, p.EvalList
	if trainList == "" {
		trainList = filepath.Join(p.Out, labels.DefaultTrainList)
	}
	if evalList == "" {
		evalList = filepath.Join(p.Out, labels.DefaultEvalList)
	}
	for _, list := range []string{trainList, evalList} {
		if err := requireExists(list); err != nil {
			return err
		}
	}

	// === REPORT ===

	if err := os.MkdirAll(p.Out, 0750); err != nil { // #nosec G301 -- user output dir
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	res, err := labels.Report(p, env.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Selected %d classes: %s train files, %s eval files, %s downloaded train rows\n",
		len(res.Classes), format.Count(res.TrainFiles), format.Count(res.EvalFiles), format.Count(res.DownloadedRows))
	return nil
}
