// Package errlog writes the per-run failure log.
//
// The log is named after the run start time, opened once, appended to one
// line per failed segment and never read back by the pipeline.
package errlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimestampLayout formats the run start time in log file names (YYYY_MM_DD_HH_MM_SS).
const TimestampLayout = "2006_01_02_15_04_05"

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return "error_" + t.Format(TimestampLayout) + ".log"
}

// Log is an append-only line log safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	lines int
}

// Open creates (or appends to) the log for a run started at start, in dir.
// An empty dir means the working directory.
func Open(dir string, start time.Time) (*Log, error) {
	p := FileName(start)
	if dir != "" {
		p = filepath.Join(dir, p)
	}

	// #nosec G302 G304 -- log path is built from a timestamp under a user-chosen dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open error log: %w", err)
	}
	return &Log{f: f, path: p}, nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes each entry on its own line. Embedded newlines are folded so
// one entry always occupies exactly one line.
func (l *Log) Append(entries ...string) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(oneLine(e))
		b.WriteByte('\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return fmt.Errorf("error log %s is closed", l.path)
	}
	if _, err := l.f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	l.lines += len(entries)
	return nil
}

// Lines returns how many entries have been appended.
func (l *Log) Lines() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

// Close closes the file. Safe to call more than once.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// oneLine collapses line breaks and surrounding whitespace.
func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(strings.NewReplacer("\r\n", " | ", "\n", " | ", "\r", " | ").Replace(s)), " ")
}
