package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/audioset/internal/config"
)

// Notes:
// - runConfig* read and write the real config file, so every test points
//   XDG_CONFIG_HOME at a temp dir and cannot run in parallel.

// isolateConfig redirects the config file into a fresh temp dir.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range config.Keys() {
		t.Setenv(config.EnvVar(key), "")
	}
}

// ---------------------------------------------------------------------------
// Tests for help text
// ---------------------------------------------------------------------------

func TestSupportedSettings_ListsEveryKey(t *testing.T) {
	t.Parallel()

	text := supportedSettings()
	for _, key := range config.Keys() {
		if !strings.Contains(text, key) {
			t.Errorf("supportedSettings() missing key %q", key)
		}
		if !strings.Contains(text, config.EnvVar(key)) {
			t.Errorf("supportedSettings() missing env var %q", config.EnvVar(key))
		}
		if configKeyHelp[key] == "" {
			t.Errorf("configKeyHelp has no description for %q", key)
		}
	}
}

// ---------------------------------------------------------------------------
// Tests for runConfigSet
// ---------------------------------------------------------------------------

func TestRunConfigSet_ValidKey(t *testing.T) {
	isolateConfig(t)

	env, _ := testEnv()

	if err := RunConfigSet(env, config.KeyWorkers, "8"); err != nil {
		t.Fatalf("RunConfigSet(workers, 8) unexpected error: %v", err)
	}

	if out := stderrOf(env); !strings.Contains(out, "Set workers = 8") {
		t.Errorf("RunConfigSet() output = %q, want containing %q", out, "Set workers = 8")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() unexpected error: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("config.Load().Workers = %d, want 8", cfg.Workers)
	}
}

func TestRunConfigSet_Rejects(t *testing.T) {
	isolateConfig(t)

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{"unknown key", "output-dir", "/tmp", config.ErrUnknownKey},
		{"zero workers", config.KeyWorkers, "0", config.ErrInvalidValue},
		{"negative clip", config.KeyClipLength, "-1", config.ErrInvalidValue},
		{"bad timeout", config.KeyToolTimeout, "soon", config.ErrInvalidValue},
		{"empty prefix", config.KeyURLPrefix, "", config.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := testEnv()
			err := RunConfigSet(env, tt.key, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RunConfigSet(%q, %q) error = %v, want %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}

	data, err := config.List()
	if err != nil {
		t.Fatalf("config.List() unexpected error: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("rejected values were saved: %v", data)
	}
}

func TestRunConfigSet_ZeroClipLengthAllowed(t *testing.T) {
	isolateConfig(t)

	env, _ := testEnv()
	if err := RunConfigSet(env, config.KeyClipLength, "0"); err != nil {
		t.Fatalf("RunConfigSet(clip-length, 0) unexpected error: %v", err)
	}

	got, err := config.Get(config.KeyClipLength)
	if err != nil {
		t.Fatalf("config.Get() unexpected error: %v", err)
	}
	if got != "0" {
		t.Errorf("config.Get(clip-length) = %q, want %q", got, "0")
	}
}

// ---------------------------------------------------------------------------
// Tests for runConfigGet
// ---------------------------------------------------------------------------

func TestRunConfigGet_FromFile(t *testing.T) {
	isolateConfig(t)

	if err := config.Save(config.KeyChannels, "2"); err != nil {
		t.Fatalf("config.Save() unexpected error: %v", err)
	}

	env, _ := testEnv()
	if err := RunConfigGet(env, config.KeyChannels); err != nil {
		t.Fatalf("RunConfigGet() unexpected error: %v", err)
	}
	if got := stdoutOf(env); got != "2\n" {
		t.Errorf("RunConfigGet() stdout = %q, want %q", got, "2\n")
	}
}

func TestRunConfigGet_FallsBackToEnv(t *testing.T) {
	isolateConfig(t)

	env, _ := testEnv(withTestGetenv(staticEnv(map[string]string{
		config.EnvVar(config.KeyRoot): "/data",
	})))

	if err := RunConfigGet(env, config.KeyRoot); err != nil {
		t.Fatalf("RunConfigGet() unexpected error: %v", err)
	}
	if got := stdoutOf(env); got != "/data\n" {
		t.Errorf("RunConfigGet() stdout = %q, want %q", got, "/data\n")
	}
}

func TestRunConfigGet_UnsetPrintsNothing(t *testing.T) {
	isolateConfig(t)

	env, _ := testEnv()
	if err := RunConfigGet(env, config.KeyWorkers); err != nil {
		t.Fatalf("RunConfigGet() unexpected error: %v", err)
	}
	if got := stdoutOf(env); got != "" {
		t.Errorf("RunConfigGet() stdout = %q, want empty", got)
	}
}

func TestRunConfigGet_UnknownKey(t *testing.T) {
	isolateConfig(t)

	env, _ := testEnv()
	err := RunConfigGet(env, "invalid-key")
	if !errors.Is(err, config.ErrUnknownKey) {
		t.Fatalf("RunConfigGet(invalid-key) error = %v, want ErrUnknownKey", err)
	}
}

// ---------------------------------------------------------------------------
// Tests for runConfigList
// ---------------------------------------------------------------------------

func TestRunConfigList_Empty(t *testing.T) {
	isolateConfig(t)

	env, _ := testEnv()
	if err := RunConfigList(env); err != nil {
		t.Fatalf("RunConfigList() unexpected error: %v", err)
	}

	out := stdoutOf(env)
	if !strings.Contains(out, "No configuration set.") {
		t.Errorf("RunConfigList() stdout = %q, want 'No configuration set.'", out)
	}
	for _, key := range config.Keys() {
		if !strings.Contains(out, "  "+key+"\n") {
			t.Errorf("RunConfigList() stdout missing available key %q", key)
		}
	}
}

func TestRunConfigList_FileAndEnv(t *testing.T) {
	isolateConfig(t)

	if err := config.Save(config.KeyWorkers, "6"); err != nil {
		t.Fatalf("config.Save() unexpected error: %v", err)
	}

	env, _ := testEnv(withTestGetenv(staticEnv(map[string]string{
		config.EnvVar(config.KeyWorkers):     "2", // shadowed by the file
		config.EnvVar(config.KeySampleRate): "16000",
	})))

	if err := RunConfigList(env); err != nil {
		t.Fatalf("RunConfigList() unexpected error: %v", err)
	}

	want := "workers=6\nsample-rate=16000 (from env)\n"
	if got := stdoutOf(env); got != want {
		t.Errorf("RunConfigList() stdout = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// Tests for ConfigCmd wiring
// ---------------------------------------------------------------------------

func TestConfigCmd_Subcommands(t *testing.T) {
	t.Parallel()

	env, _ := testEnv()
	cmd := ConfigCmd(env)

	want := map[string]bool{"set": false, "get": false, "list": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("ConfigCmd() missing subcommand %q", name)
		}
	}
}

func TestConfigCmd_SetThroughCobra(t *testing.T) {
	isolateConfig(t)

	env, _ := testEnv()
	cmd := ConfigCmd(env)
	cmd.SetArgs([]string{"set", config.KeyBitDepth, "24"})
	cmd.SetOut(&syncBuffer{})
	cmd.SetErr(&syncBuffer{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config set via cobra unexpected error: %v", err)
	}

	got, err := config.Get(config.KeyBitDepth)
	if err != nil {
		t.Fatalf("config.Get() unexpected error: %v", err)
	}
	if got != "24" {
		t.Errorf("config.Get(bit-depth) = %q, want %q", got, "24")
	}
}
