package labels

import (
	"fmt"
	"io"
	"path/filepath"
)

// DefaultTop is the number of classes selected by Report.
const DefaultTop = 110

// Source table names under ReportPaths.Src.
const (
	ClassLabelsFile         = "class_labels.tsv"
	StrongTrainFile         = "audioset_strong_train.tsv"
	StrongEvalFile          = "audioset_strong_eval.tsv"
	WeakTrainBalancedFile   = "audioset_weak_train_balanced.tsv"
	WeakTrainUnbalancedFile = "audioset_weak_train_unbalanced.tsv"
	WeakEvalFile            = "audioset_weak_eval.tsv"
)

// Lists of downloaded segment keys, one per line, looked up under Out when
// ReportPaths leaves them empty.
const (
	DefaultTrainList = "train_list.txt"
	DefaultEvalList  = "eval_list.txt"
)

// Output names under ReportPaths.Out. In the *Top names %d is the class count.
const (
	selectedClassesFile   = "selected_classes.txt"
	selectedTrainFiles    = "selected_files_train.txt"
	selectedEvalFiles     = "selected_files_eval.txt"
	strongTrainDownloaded = "audioset_strong_train_downloaded.tsv"
	strongEvalDownloaded  = "audioset_strong_eval_downloaded.tsv"
	classCountsTable      = "AudioSetClassCounts.tsv"
	downloadedCountsTable = "AudioSetDownloadedCounts.tsv"

	strongTrainTop   = "audioset_strong_train_top%dclasses.tsv"
	strongEvalTop    = "audioset_strong_eval_top%dclasses.tsv"
	strongTrainTopDl = "audioset_strong_train_top%dclasses_downloaded.tsv"
	strongEvalTopDl  = "audioset_strong_eval_top%dclasses_downloaded.tsv"
	topCountsTable   = "AudioSetTop%dClassesSortedCounts.tsv"
)

// ReportPaths locates the inputs and outputs of Report.
type ReportPaths struct {
	Src       string // Directory holding the source tables.
	Out       string // Directory receiving every output.
	TrainList string // Downloaded train keys; defaults to Out/train_list.txt.
	EvalList  string // Downloaded eval keys; defaults to Out/eval_list.txt.
	Top       int    // Classes to select; defaults to DefaultTop.
}

func (p ReportPaths) withDefaults() ReportPaths {
	if p.Top <= 0 {
		p.Top = DefaultTop
	}
	if p.TrainList == "" {
		p.TrainList = filepath.Join(p.Out, DefaultTrainList)
	}
	if p.EvalList == "" {
		p.EvalList = filepath.Join(p.Out, DefaultEvalList)
	}
	return p
}

func (p ReportPaths) src(name string) string { return filepath.Join(p.Src, name) }

func (p ReportPaths) out(name string) string { return filepath.Join(p.Out, name) }

func (p ReportPaths) outTop(pattern string) string {
	return filepath.Join(p.Out, fmt.Sprintf(pattern, p.Top))
}

// ReportResult summarizes a Report run.
type ReportResult struct {
	Classes        []string // Selected classes, most frequent first.
	TrainFiles     int      // Distinct train files annotated with a selected class.
	EvalFiles      int      // Distinct eval files annotated with a selected class.
	DownloadedRows int      // Strong train rows kept for downloaded files of selected classes.
	Written        []string // Every file written, in order.
}

// Report loads the label and annotation tables, selects the top classes by
// strong train event count, writes the filtered tables and file selections,
// then writes the three count tables. Progress goes to w.
func Report(p ReportPaths, w io.Writer) (*ReportResult, error) {
	p = p.withDefaults()
	res := &ReportResult{}
	wrote := func(path string) {
		res.Written = append(res.Written, path)
		_, _ = fmt.Fprintf(w, "Wrote %s\n", path)
	}

	labels, err := LoadLabels(p.src(ClassLabelsFile))
	if err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(w, "Loaded %d labels\n", len(labels.IDs))

	tables := map[string]*Index{}
	for _, name := range []string{StrongTrainFile, StrongEvalFile, WeakTrainBalancedFile, WeakTrainUnbalancedFile, WeakEvalFile} {
		idx, err := LoadAnnotations(p.src(name))
		if err != nil {
			return nil, err
		}
		tables[name] = idx
		_, _ = fmt.Fprintf(w, "Loaded %s: %d files, %d labels\n", name, len(idx.Files()), idx.FileCounts().Len())
	}
	train, eval := tables[StrongTrainFile], tables[StrongEvalFile]

	classesPath := p.out(selectedClassesFile)
	res.Classes, err = SelectClasses(train.Events(), p.Top, classesPath)
	if err != nil {
		return nil, err
	}
	wrote(classesPath)

	var discard int
	filters := []struct {
		allowed, src, dst string
		column            int
		kept              *int
	}{
		{classesPath, p.src(StrongTrainFile), p.outTop(strongTrainTop), ColumnLabel, &discard},
		{classesPath, p.src(StrongEvalFile), p.outTop(strongEvalTop), ColumnLabel, &discard},
		{p.TrainList, p.src(StrongTrainFile), p.out(strongTrainDownloaded), ColumnFilename, &discard},
		{p.EvalList, p.src(StrongEvalFile), p.out(strongEvalDownloaded), ColumnFilename, &discard},
		{classesPath, p.out(strongTrainDownloaded), p.outTop(strongTrainTopDl), ColumnLabel, &res.DownloadedRows},
		{classesPath, p.out(strongEvalDownloaded), p.outTop(strongEvalTopDl), ColumnLabel, &discard},
	}
	for _, f := range filters {
		n, err := FilterByFile(f.allowed, f.src, f.dst, f.column)
		if err != nil {
			return nil, err
		}
		*f.kept = n
		wrote(f.dst)
	}

	trainFiles, err := SelectFiles(p.outTop(strongTrainTop), p.out(selectedTrainFiles))
	if err != nil {
		return nil, err
	}
	res.TrainFiles = len(trainFiles)
	wrote(p.out(selectedTrainFiles))

	evalFiles, err := SelectFiles(p.outTop(strongEvalTop), p.out(selectedEvalFiles))
	if err != nil {
		return nil, err
	}
	res.EvalFiles = len(evalFiles)
	wrote(p.out(selectedEvalFiles))

	trainDl, err := LoadAnnotations(p.outTop(strongTrainTopDl))
	if err != nil {
		return nil, err
	}
	evalDl, err := LoadAnnotations(p.outTop(strongEvalTopDl))
	if err != nil {
		return nil, err
	}

	stats := Stats{
		TrainEvents:           train.Events(),
		TrainFiles:            train.FileCounts(),
		EvalEvents:            eval.Events(),
		EvalFiles:             eval.FileCounts(),
		WeakTrainBalanced:     tables[WeakTrainBalancedFile].FileCounts(),
		WeakTrainUnbalanced:   tables[WeakTrainUnbalancedFile].FileCounts(),
		WeakEval:              tables[WeakEvalFile].FileCounts(),
		DownloadedTrainEvents: trainDl.Events(),
		DownloadedTrainFiles:  trainDl.FileCounts(),
		DownloadedEvalEvents:  evalDl.Events(),
		DownloadedEvalFiles:   evalDl.FileCounts(),
	}

	if err := WriteCountsTable(p.out(classCountsTable), labels, stats); err != nil {
		return nil, err
	}
	wrote(p.out(classCountsTable))
	if err := WriteTopCountsTable(p.outTop(topCountsTable), p.Top, stats); err != nil {
		return nil, err
	}
	wrote(p.outTop(topCountsTable))
	if err := WriteDownloadedCountsTable(p.out(downloadedCountsTable), p.Top, stats); err != nil {
		return nil, err
	}
	wrote(p.out(downloadedCountsTable))

	return res, nil
}
