package tool

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// FetchArgs exports fetchArgs for testing.
var FetchArgs = fetchArgs

// ReformatArgs exports reformatArgs for testing.
var ReformatArgs = reformatArgs

// TrimArgs exports trimArgs for testing.
var TrimArgs = trimArgs

// ParseVersion exports parseVersion for testing.
var ParseVersion = parseVersion

// LastLine exports lastLine for testing.
var LastLine = lastLine

// NewTailBuffer exports newTailBuffer for testing.
func NewTailBuffer(size int) interface {
	Write(p []byte) (int, error)
	String() string
} {
	return newTailBuffer(size)
}

// OSCommandRunner exports the production command runner for testing.
var OSCommandRunner = osCommandRunner{}
