package labels

import "bufio"

// Table headers.
var (
	countsHeader = []any{
		"class_id",
		"train_event_count", "train_file_count",
		"eval_event_count", "eval_file_count",
		"weak_train_balanced_count", "weak_train_unbalanced_count", "weak_eval_count",
	}
	downloadedHeader = []any{
		"class_id",
		"train_event_count", "train_event_count_downloaded",
		"train_file_count", "train_file_count_downloaded",
		"eval_event_count", "eval_event_count_downloaded",
		"eval_file_count", "eval_file_count_downloaded",
	}
)

// Stats gathers the per-class counters behind the count tables.
// Strong counters count events (rows) and files; weak counters count files.
type Stats struct {
	TrainEvents *Counter
	TrainFiles  *Counter
	EvalEvents  *Counter
	EvalFiles   *Counter

	WeakTrainBalanced   *Counter
	WeakTrainUnbalanced *Counter
	WeakEval            *Counter

	// Same as the strong counters, restricted to downloaded files of the top classes.
	DownloadedTrainEvents *Counter
	DownloadedTrainFiles  *Counter
	DownloadedEvalEvents  *Counter
	DownloadedEvalFiles   *Counter
}

func (s Stats) countsRow(id string) []any {
	return []any{
		id,
		s.TrainEvents.Get(id), s.TrainFiles.Get(id),
		s.EvalEvents.Get(id), s.EvalFiles.Get(id),
		s.WeakTrainBalanced.Get(id), s.WeakTrainUnbalanced.Get(id), s.WeakEval.Get(id),
	}
}

func (s Stats) downloadedRow(id string) []any {
	return []any{
		id,
		s.TrainEvents.Get(id), s.DownloadedTrainEvents.Get(id),
		s.TrainFiles.Get(id), s.DownloadedTrainFiles.Get(id),
		s.EvalEvents.Get(id), s.DownloadedEvalEvents.Get(id),
		s.EvalFiles.Get(id), s.DownloadedEvalFiles.Get(id),
	}
}

// topIDs returns the top classes by strong train event count.
func (s Stats) topIDs(top int) []string {
	var ids []string
	for _, e := range s.TrainEvents.MostCommon(top) {
		ids = append(ids, e.Key)
	}
	return ids
}

// WriteCountsTable writes one row per label, in label-file order.
func WriteCountsTable(path string, l *Labels, s Stats) error {
	return writeTable(path, countsHeader, l.IDs, s.countsRow)
}

// WriteTopCountsTable writes the top classes by strong train event count,
// most frequent first.
func WriteTopCountsTable(path string, top int, s Stats) error {
	return writeTable(path, countsHeader, s.topIDs(top), s.countsRow)
}

// WriteDownloadedCountsTable compares the top classes' counts in the full
// strong tables with the downloaded subset.
func WriteDownloadedCountsTable(path string, top int, s Stats) error {
	return writeTable(path, downloadedHeader, s.topIDs(top), s.downloadedRow)
}

func writeTable(path string, header []any, ids []string, row func(string) []any) error {
	return writeFile(path, func(w *bufio.Writer) error {
		if err := writeRow(w, header...); err != nil {
			return err
		}
		for _, id := range ids {
			if err := writeRow(w, row(id)...); err != nil {
				return err
			}
		}
		return nil
	})
}
