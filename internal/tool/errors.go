package tool

import "errors"

// ErrNotFound indicates a tool binary is not installed or could not be started.
var ErrNotFound = errors.New("tool not found")

// ErrToolFailed indicates a tool exited with a non-zero status.
var ErrToolFailed = errors.New("tool failed")

// ErrNoOutput indicates a tool exited successfully but the expected file is missing.
var ErrNoOutput = errors.New("tool produced no output file")

// ErrTimeout indicates a tool did not exit within the configured timeout.
var ErrTimeout = errors.New("tool timed out")
