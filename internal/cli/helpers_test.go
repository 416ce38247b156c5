package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/audioset/internal/config"
	"github.com/alnah/audioset/internal/tool"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	toolResolver *mockToolResolver
	configLoader *mockConfigLoader
	invoker      *mockInvokerFactory
	store        *mockStoreFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		toolResolver: &mockToolResolver{},
		configLoader: &mockConfigLoader{},
		invoker:      &mockInvokerFactory{mockInvoker: &mockInvoker{}},
		store:        &mockStoreFactory{store: newMockStore()},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	now    func() time.Time
	drain  <-chan struct{}
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestDrain(ch <-chan struct{}) testEnvOption {
	return func(o *testEnvOptions) { o.drain = ch }
}

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		getenv: staticEnv(nil),
		now:    fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		mocks:  newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	env := &Env{
		Stdout:         options.stdout,
		Stderr:         options.stderr,
		Getenv:         options.getenv,
		Now:            options.now,
		Drain:          options.drain,
		ToolResolver:   options.mocks.toolResolver,
		ConfigLoader:   options.mocks.configLoader,
		InvokerFactory: options.mocks.invoker,
		StoreFactory:   options.mocks.store,
	}

	return env, options.mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// stdoutOf returns what a command wrote to the Env's stdout.
func stdoutOf(env *Env) string {
	return env.Stdout.(*syncBuffer).String()
}

// stderrOf returns what a command wrote to the Env's stderr.
func stderrOf(env *Env) string {
	return env.Stderr.(*syncBuffer).String()
}

// testBinaries returns tool paths that are never executed.
func testBinaries() tool.Binaries {
	return tool.Binaries{YtDlp: "/usr/bin/yt-dlp", Sox: "/usr/bin/sox"}
}

// testConfig returns the default config rooted at dir.
func testConfig(dir string) config.Config {
	cfg := config.Defaults()
	cfg.Root = dir
	return cfg
}

// writeWorkList writes lines to a work list file in dir and returns its path.
func writeWorkList(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "work.txt")
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write work list: %v", err)
	}
	return path
}

// writeClips creates empty clips named key.wav in dir.
func writeClips(t *testing.T, dir string, keys ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	for _, k := range keys {
		if err := os.WriteFile(filepath.Join(dir, k+".wav"), []byte("clip "+k), 0644); err != nil {
			t.Fatalf("failed to write clip %s: %v", k, err)
		}
	}
}
