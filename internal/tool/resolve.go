package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Environment variables overriding tool lookup.
const (
	EnvYtDlpPath = "YTDLP_PATH"
	EnvSoxPath   = "SOX_PATH"
)

// ---------------------------------------------------------------------------
// Resolver - testable tool resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver finds the external tool binaries.
type Resolver struct {
	reader fileSystem
	env    envProvider
	goos   string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverFileSystem sets the filesystem used to validate env overrides.
func WithResolverFileSystem(fs fileSystem) ResolverOption {
	return func(r *Resolver) { r.reader = fs }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform sets the target OS (for testing install instructions).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		reader: osFileSystem{},
		env:    osEnvProvider{},
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds every tool using, for each one:
//  1. its *_PATH environment variable (error if set but invalid)
//  2. the system PATH
func (r *Resolver) Resolve(_ context.Context) (Binaries, error) {
	ytdlp, err := r.find(NameYtDlp, EnvYtDlpPath)
	if err != nil {
		return Binaries{}, err
	}
	sox, err := r.find(NameSox, EnvSoxPath)
	if err != nil {
		return Binaries{}, err
	}
	return Binaries{YtDlp: ytdlp, Sox: sox}, nil
}

func (r *Resolver) find(name, envKey string) (string, error) {
	if envPath := r.env.Getenv(envKey); envPath != "" {
		if _, err := r.reader.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found (unset to search PATH)",
				ErrNotFound, envKey, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: %s is not in PATH\n\n%s", ErrNotFound, name, r.installInstructions(name))
}

// installInstructions returns platform-specific instructions for a tool.
func (r *Resolver) installInstructions(name string) string {
	envKey := EnvSoxPath
	if name == NameYtDlp {
		envKey = EnvYtDlpPath
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To install %s manually:\n", name)
	switch r.goos {
	case "darwin":
		fmt.Fprintf(&b, "  brew install %s\n", name)
	case "linux":
		if name == NameYtDlp {
			b.WriteString("  pipx install yt-dlp\n")
		} else {
			b.WriteString("  Ubuntu/Debian: sudo apt install sox\n")
			b.WriteString("  Fedora:        sudo dnf install sox\n")
			b.WriteString("  Arch:          sudo pacman -S sox\n")
		}
	case "windows":
		fmt.Fprintf(&b, "  winget install %s\n", name)
	default:
		if name == NameYtDlp {
			b.WriteString("  see https://github.com/yt-dlp/yt-dlp#installation\n")
		} else {
			b.WriteString("  see https://sourceforge.net/projects/sox/\n")
		}
	}
	fmt.Fprintf(&b, "\nOr set %s environment variable to your %s binary.", envKey, name)
	return b.String()
}

// ---------------------------------------------------------------------------
// VersionChecker - reports tool versions before a run
// ---------------------------------------------------------------------------

// VersionChecker queries tool versions.
type VersionChecker struct {
	runner commandRunner
	stderr io.Writer
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionRunner sets the command runner.
func WithVersionRunner(r commandRunner) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.runner = r }
}

// WithVersionStderr sets the writer for status messages.
func WithVersionStderr(w io.Writer) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.stderr = w }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		runner: osCommandRunner{},
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check prints the version of each tool, or a warning when it cannot be
// determined. It never fails: a tool that can't report its version may still work.
func (vc *VersionChecker) Check(ctx context.Context, bins Binaries) {
	for _, t := range []struct{ name, bin string }{
		{NameYtDlp, bins.YtDlp},
		{NameSox, bins.Sox},
	} {
		if v := vc.version(ctx, t.bin); v != "" {
			fmt.Fprintf(vc.stderr, "Using %s %s\n", t.name, v)
		} else {
			fmt.Fprintf(vc.stderr, "Warning: could not determine %s version\n", t.name)
		}
	}
}

// version runs "<bin> --version" and extracts the version string.
// yt-dlp prints the bare version; sox prints "sox:      SoX v14.4.2".
func (vc *VersionChecker) version(ctx context.Context, bin string) string {
	code, output, err := vc.runner.Run(ctx, bin, []string{"--version"})
	if err != nil || code != 0 {
		return ""
	}
	return parseVersion(output)
}

// parseVersion extracts a version token from the first output line.
func parseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	for _, f := range fields {
		if strings.HasPrefix(f, "v") && len(f) > 1 && f[1] >= '0' && f[1] <= '9' {
			return strings.TrimPrefix(f, "v")
		}
	}
	return fields[len(fields)-1]
}

// ---------------------------------------------------------------------------
// Package-level functions - facade over default instances
// ---------------------------------------------------------------------------

// Resolve finds the tools using a default resolver.
func Resolve(ctx context.Context) (Binaries, error) {
	return NewResolver().Resolve(ctx)
}

// CheckVersions reports tool versions to w.
func CheckVersions(ctx context.Context, bins Binaries, w io.Writer) {
	NewVersionChecker(WithVersionStderr(w)).Check(ctx, bins)
}
