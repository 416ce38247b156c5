package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/audioset/internal/pipeline"
	"github.com/alnah/audioset/internal/retry"
	"github.com/alnah/audioset/internal/segment"
	"github.com/alnah/audioset/internal/tool"
)

// appDir is the directory name under the user config directory.
const appDir = "audioset"

// Config keys.
const (
	KeyWorkers      = "workers"
	KeyClipLength   = "clip-length"
	KeySampleRate   = "sample-rate"
	KeyBitDepth     = "bit-depth"
	KeyChannels     = "channels"
	KeyToolTimeout  = "tool-timeout"
	KeyFetchRetries = "fetch-retries"
	KeyRoot         = "root"
	KeyURLPrefix    = "url-prefix"
)

// envPrefix prefixes the environment variable fallback of every key.
const envPrefix = "AUDIOSET_"

// Config holds the download settings.
type Config struct {
	Workers      int
	ClipLengthMS int
	SampleRate   int
	BitDepth     int
	Channels     int
	ToolTimeout  time.Duration // Zero disables the per-invocation timeout.
	FetchRetries int
	Root         string
	URLPrefix    string
}

// Defaults returns the built-in settings.
func Defaults() Config {
	f := tool.DefaultFormat()
	return Config{
		Workers:      pipeline.DefaultWorkers,
		ClipLengthMS: pipeline.DefaultClipLengthMS,
		SampleRate:   f.SampleRate,
		BitDepth:     f.BitDepth,
		Channels:     f.Channels,
		ToolTimeout:  tool.DefaultTimeout,
		FetchRetries: retry.DefaultMaxRetries,
		Root:         ".",
		URLPrefix:    segment.DefaultURLPrefix,
	}
}

// Keys returns every recognized key, in display order.
func Keys() []string {
	return []string{
		KeyWorkers, KeyClipLength, KeySampleRate, KeyBitDepth, KeyChannels,
		KeyToolTimeout, KeyFetchRetries, KeyRoot, KeyURLPrefix,
	}
}

// IsKnown reports whether key is a recognized setting.
func IsKnown(key string) bool {
	return slices.Contains(Keys(), key)
}

// EnvVar returns the environment variable read as a fallback for key,
// e.g. "clip-length" -> "AUDIOSET_CLIP_LENGTH".
func EnvVar(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Format returns the reformat target described by c.
func (c Config) Format() tool.Format {
	return tool.Format{SampleRate: c.SampleRate, BitDepth: c.BitDepth, Channels: c.Channels}
}

// Value returns the textual value of key in c.
func (c Config) Value(key string) string {
	switch key {
	case KeyWorkers:
		return strconv.Itoa(c.Workers)
	case KeyClipLength:
		return strconv.Itoa(c.ClipLengthMS)
	case KeySampleRate:
		return strconv.Itoa(c.SampleRate)
	case KeyBitDepth:
		return strconv.Itoa(c.BitDepth)
	case KeyChannels:
		return strconv.Itoa(c.Channels)
	case KeyToolTimeout:
		return c.ToolTimeout.String()
	case KeyFetchRetries:
		return strconv.Itoa(c.FetchRetries)
	case KeyRoot:
		return c.Root
	case KeyURLPrefix:
		return c.URLPrefix
	default:
		return ""
	}
}

// Set parses value into the field named by key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyWorkers:
		return setInt(&c.Workers, key, value, 1)
	case KeyClipLength:
		return setInt(&c.ClipLengthMS, key, value, 0)
	case KeySampleRate:
		return setInt(&c.SampleRate, key, value, 1)
	case KeyBitDepth:
		return setInt(&c.BitDepth, key, value, 1)
	case KeyChannels:
		return setInt(&c.Channels, key, value, 1)
	case KeyFetchRetries:
		return setInt(&c.FetchRetries, key, value, 0)
	case KeyToolTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %s=%q (want a duration like 10m, or 0 to disable)", ErrInvalidValue, key, value)
		}
		c.ToolTimeout = d
		return nil
	case KeyRoot:
		if value == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidValue, key)
		}
		c.Root = ExpandPath(value)
		return nil
	case KeyURLPrefix:
		if value == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidValue, key)
		}
		c.URLPrefix = value
		return nil
	default:
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
}

func setInt(dst *int, key, value string, minimum int) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < minimum {
		return fmt.Errorf("%w: %s=%q (want an integer >= %d)", ErrInvalidValue, key, value, minimum)
	}
	*dst = n
	return nil
}

// Validate checks settings that depend on each other or on tool limits.
func (c Config) Validate() error {
	if err := c.Format().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalidValue, KeyWorkers)
	}
	return nil
}

// CheckValue reports whether value is acceptable for key without storing it.
func CheckValue(key, value string) error {
	c := Defaults()
	return c.Set(key, value)
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/audioset.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load builds the configuration from defaults, then AUDIOSET_* environment
// variables, then the config file. A missing file is not an error.
// Unknown keys in the file are ignored.
func Load() (Config, error) {
	cfg := Defaults()

	for _, key := range Keys() {
		if v := os.Getenv(EnvVar(key)); v != "" {
			if err := cfg.Set(key, v); err != nil {
				return cfg, fmt.Errorf("from %s: %w", EnvVar(key), err)
			}
		}
	}

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	for _, key := range Keys() {
		if v, ok := data[key]; ok && v != "" {
			if err := cfg.Set(key, v); err != nil {
				return cfg, fmt.Errorf("from %s: %w", p, err)
			}
		}
	}

	return cfg, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if key == "" || strings.ContainsAny(key, "=\n\r#") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("%w: value for %s contains a newline", ErrInvalidValue, key)
	}

	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if existing == nil {
		existing = make(map[string]string)
	}

	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, data[key]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}

// ParseFile reads a key=value config file (exported for testing).
func ParseFile(p string) (map[string]string, error) {
	return parseFile(p)
}
