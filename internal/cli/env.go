package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/audioset/internal/config"
	"github.com/alnah/audioset/internal/pipeline"
	"github.com/alnah/audioset/internal/publish"
	"github.com/alnah/audioset/internal/tool"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Drain, once closed, asks a running download to stop after the chunk
	// in flight. Nil means never.
	Drain <-chan struct{}

	// Factories for domain objects
	ToolResolver   ToolResolver
	ConfigLoader   ConfigLoader
	InvokerFactory InvokerFactory
	StoreFactory   StoreFactory
}

// ToolResolver locates the external download and audio tools.
type ToolResolver interface {
	Resolve(ctx context.Context) (tool.Binaries, error)
	CheckVersions(ctx context.Context, bins tool.Binaries, w io.Writer)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// InvokerFactory creates the tool invoker used by the download pipeline.
type InvokerFactory interface {
	NewInvoker(bins tool.Binaries, timeout time.Duration) (pipeline.Invoker, error)
}

// StoreFactory creates the object store client used by publish.
type StoreFactory interface {
	NewStore(getenv func(string) string) (publish.ObjectStore, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithDrain sets the graceful stop channel.
func WithDrain(ch <-chan struct{}) EnvOption {
	return func(e *Env) {
		e.Drain = ch
	}
}

// WithToolResolver sets the tool resolver.
func WithToolResolver(r ToolResolver) EnvOption {
	return func(e *Env) {
		e.ToolResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithInvokerFactory sets the invoker factory.
func WithInvokerFactory(f InvokerFactory) EnvOption {
	return func(e *Env) {
		e.InvokerFactory = f
	}
}

// WithStoreFactory sets the object store factory.
func WithStoreFactory(f StoreFactory) EnvOption {
	return func(e *Env) {
		e.StoreFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Getenv:         os.Getenv,
		Now:            time.Now,
		ToolResolver:   &defaultToolResolver{},
		ConfigLoader:   &defaultConfigLoader{},
		InvokerFactory: &defaultInvokerFactory{},
		StoreFactory:   &defaultStoreFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultToolResolver implements ToolResolver using the tool package.
type defaultToolResolver struct{}

func (defaultToolResolver) Resolve(ctx context.Context) (tool.Binaries, error) {
	return tool.Resolve(ctx)
}

func (defaultToolResolver) CheckVersions(ctx context.Context, bins tool.Binaries, w io.Writer) {
	tool.CheckVersions(ctx, bins, w)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultInvokerFactory implements InvokerFactory with real subprocesses.
type defaultInvokerFactory struct{}

func (defaultInvokerFactory) NewInvoker(bins tool.Binaries, timeout time.Duration) (pipeline.Invoker, error) {
	return tool.NewInvoker(bins, tool.WithTimeout(timeout))
}

// defaultStoreFactory implements StoreFactory with a MinIO client.
type defaultStoreFactory struct{}

func (defaultStoreFactory) NewStore(getenv func(string) string) (publish.ObjectStore, error) {
	conn, err := publish.ConnectionFromEnv(getenv)
	if err != nil {
		return nil, err
	}
	return publish.NewMinioStore(conn)
}

// Compile-time interface verification.
var (
	_ ToolResolver   = (*defaultToolResolver)(nil)
	_ ConfigLoader   = (*defaultConfigLoader)(nil)
	_ InvokerFactory = (*defaultInvokerFactory)(nil)
	_ StoreFactory   = (*defaultStoreFactory)(nil)
)
