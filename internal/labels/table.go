// Package labels computes class statistics over AudioSet annotation tables
// and derives the filtered tables and class selections used to pick what to
// download.
//
// All tables are tab-separated with a header row. Label tables have the
// header "id"; annotation tables start with "filename\tevent_label" and may
// carry onset and offset columns.
package labels

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Header cell values that identify the first row of a table.
const (
	headerID       = "id"
	headerFilename = "filename"
)

// headerCells are kept by FilterByFile regardless of the allowed set.
var headerCells = map[string]bool{
	"filename":    true,
	"event_label": true,
	"onset":       true,
	"offset":      true,
}

// eachRow calls fn with the tab-split cells of every non-blank line in path,
// and the 1-based line number. Line terminators are removed.
func eachRow(path string, fn func(lineNo int, raw string, cells []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(lineNo, line, strings.Split(line, "\t")); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// readList returns the non-blank lines of path, in order.
func readList(path string) ([]string, error) {
	var items []string
	err := eachRow(path, func(_ int, raw string, _ []string) error {
		items = append(items, raw)
		return nil
	})
	return items, err
}

// writeLines writes one item per line to path, replacing it.
func writeLines(path string, items []string) error {
	return writeFile(path, func(w *bufio.Writer) error {
		for _, it := range items {
			if _, err := w.WriteString(it + "\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeFile(path string, fill func(w *bufio.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
