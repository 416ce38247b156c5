package runlock

// SetProcessAlive replaces the liveness probe and returns a restore func.
func SetProcessAlive(fn func(pid int) bool) func() {
	prev := processAlive
	processAlive = fn
	return func() { processAlive = prev }
}

var IsProcessRunning = isProcessRunning
