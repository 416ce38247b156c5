package labels

import (
	"bufio"
	"fmt"
)

// Columns of an annotation table.
const (
	ColumnFilename = 0
	ColumnLabel    = 1
)

// FilterByFile copies the rows of src whose column holds a value listed in
// allowedPath (one per line) to dst. Header rows are always kept.
// It returns the number of data rows kept.
func FilterByFile(allowedPath, src, dst string, column int) (int, error) {
	list, err := readList(allowedPath)
	if err != nil {
		return 0, err
	}
	allowed := make(map[string]bool, len(list))
	for _, v := range list {
		allowed[v] = true
	}

	var rows []string
	kept := 0
	err = eachRow(src, func(lineNo int, raw string, cells []string) error {
		if column >= len(cells) {
			return fmt.Errorf("%w: %s:%d: no column %d", ErrMalformedRow, src, lineNo, column)
		}
		v := cells[column]
		switch {
		case headerCells[v]:
			rows = append(rows, raw)
		case allowed[v]:
			rows = append(rows, raw)
			kept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return kept, writeLines(dst, rows)
}

// SelectClasses writes the top most frequent keys of c to out, one per line,
// most frequent first, and returns them.
func SelectClasses(c *Counter, top int, out string) ([]string, error) {
	var classes []string
	for _, e := range c.MostCommon(top) {
		classes = append(classes, e.Key)
	}
	return classes, writeLines(out, classes)
}

// SelectFiles writes the distinct filenames of the annotation table src to
// out, in first-seen order, and returns them.
func SelectFiles(src, out string) ([]string, error) {
	idx, err := LoadAnnotations(src)
	if err != nil {
		return nil, err
	}
	files := idx.Files()
	return files, writeLines(out, files)
}

// writeRow writes cells joined by tabs.
func writeRow(w *bufio.Writer, cells ...any) error {
	for i, c := range cells {
		if i > 0 {
			if err := w.WriteByte('\t'); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, c); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
