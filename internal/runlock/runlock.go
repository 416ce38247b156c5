// Package runlock prevents two download runs from working on the same
// dataset at once. The lock is a PID file; a file left by a dead process is
// treated as stale and replaced.
package runlock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrHeld indicates another live process owns the lock.
var ErrHeld = errors.New("run lock held by another process")

// Lock is an acquired run lock.
type Lock struct {
	path string
	pid  int
}

// processAlive is swapped in tests.
var processAlive = isProcessRunning

// Acquire creates the lock file at path containing the current PID.
// It fails with ErrHeld if the file names a running process.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	pid := os.Getpid()
	for range 2 {
		err := writeExclusive(path, pid)
		if err == nil {
			return &Lock{path: path, pid: pid}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to write lock file: %w", err)
		}

		owner, ok := readPID(path)
		if ok && processAlive(owner) {
			return nil, fmt.Errorf("%w: %s (PID %d)", ErrHeld, path, owner)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s (acquired concurrently)", ErrHeld, path)
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file if it still names this process.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if pid, ok := readPID(l.path); !ok || pid != l.pid {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func writeExclusive(path string, pid int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// readPID returns the PID recorded in path. ok is false when the file is
// missing or does not hold a number.
func readPID(path string) (pid int, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
