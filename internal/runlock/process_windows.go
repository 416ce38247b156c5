//go:build windows

package runlock

import "os"

// isProcessRunning relies on FindProcess opening a handle, which fails for
// exited processes on Windows.
func isProcessRunning(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
