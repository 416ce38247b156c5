package tool

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// ---------------------------------------------------------------------------
// Interfaces - local to this package, following Go idiom
// ---------------------------------------------------------------------------

// commandRunner executes an external command to completion.
// err is non-nil only when the process could not be started or did not exit
// on its own (killed, canceled); otherwise exitCode carries the status.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) (exitCode int, output string, err error)
}

// fileSystem abstracts the filesystem operations the invoker needs.
type fileSystem interface {
	Stat(name string) (os.FileInfo, error)
	CreateTemp(dir, pattern string) (*os.File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
}

// envProvider abstracts environment and path lookup operations.
type envProvider interface {
	Getenv(key string) string
	LookPath(file string) (string, error)
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to standard library
// ---------------------------------------------------------------------------

// Compile-time interface verification.
var (
	_ commandRunner = osCommandRunner{}
	_ fileSystem    = osFileSystem{}
	_ envProvider   = osEnvProvider{}
)

// outputTailSize bounds how much combined output is kept per invocation.
const outputTailSize = 4096

// waitDelay bounds how long Wait blocks on I/O after the process is killed.
const waitDelay = 5 * time.Second

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args []string) (int, string, error) {
	// #nosec G204 -- name is a resolved tool binary, args are built by this package
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay

	out := newTailBuffer(outputTailSize)
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return 0, out.String(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 && ctx.Err() == nil {
		return exitErr.ExitCode(), out.String(), nil
	}
	return -1, out.String(), err
}

// osFileSystem implements fileSystem using the os package.
type osFileSystem struct{}

func (osFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (osFileSystem) CreateTemp(dir, pattern string) (*os.File, error) {
	return os.CreateTemp(dir, pattern)
}

func (osFileSystem) Remove(name string) error {
	return os.Remove(name)
}

func (osFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// osEnvProvider implements envProvider using os and exec packages.
type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (osEnvProvider) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
