package labels

import (
	"fmt"
	"strings"
)

// Labels maps class ids to display names, in file order.
type Labels struct {
	IDs   []string
	Names map[string]string
}

// LoadLabels reads an "id\tlabel" table.
func LoadLabels(path string) (*Labels, error) {
	l := &Labels{Names: make(map[string]string)}
	err := eachRow(path, func(lineNo int, raw string, _ []string) error {
		id, name, ok := strings.Cut(raw, "\t")
		if !ok {
			return fmt.Errorf("%w: %s:%d: want id and label", ErrMalformedRow, path, lineNo)
		}
		if id == headerID {
			return nil
		}
		if _, dup := l.Names[id]; !dup {
			l.IDs = append(l.IDs, id)
		}
		l.Names[id] = name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Index relates files and event labels of one annotation table.
type Index struct {
	fileLabels map[string]map[string]struct{}
	labelFiles map[string]map[string]struct{}
	files      []string
	labels     []string
	events     *Counter
}

// LoadAnnotations reads a "filename\tevent_label[\tonset\toffset]" table.
func LoadAnnotations(path string) (*Index, error) {
	idx := &Index{
		fileLabels: make(map[string]map[string]struct{}),
		labelFiles: make(map[string]map[string]struct{}),
		events:     NewCounter(),
	}
	err := eachRow(path, func(lineNo int, _ string, cells []string) error {
		if len(cells) < 2 {
			return fmt.Errorf("%w: %s:%d: want filename and event_label", ErrMalformedRow, path, lineNo)
		}
		file, label := cells[0], cells[1]
		if file == headerFilename {
			return nil
		}
		idx.add(file, label)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) add(file, label string) {
	if _, ok := idx.fileLabels[file]; !ok {
		idx.fileLabels[file] = make(map[string]struct{})
		idx.files = append(idx.files, file)
	}
	idx.fileLabels[file][label] = struct{}{}

	if _, ok := idx.labelFiles[label]; !ok {
		idx.labelFiles[label] = make(map[string]struct{})
		idx.labels = append(idx.labels, label)
	}
	idx.labelFiles[label][file] = struct{}{}

	idx.events.Add(label, 1)
}

// Files returns the distinct filenames in first-seen order.
func (idx *Index) Files() []string {
	return append([]string(nil), idx.files...)
}

// LabelsOf returns how many distinct labels file carries.
func (idx *Index) LabelsOf(file string) int {
	return len(idx.fileLabels[file])
}

// Events counts annotation rows per label.
func (idx *Index) Events() *Counter {
	return idx.events
}

// FileCounts counts distinct files per label.
func (idx *Index) FileCounts() *Counter {
	c := NewCounter()
	for _, l := range idx.labels {
		c.Add(l, len(idx.labelFiles[l]))
	}
	return c
}
