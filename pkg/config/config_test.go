// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/invowk/shipyard/internal/issue"
	"github.com/invowk/shipyard/internal/testutil"
	"github.com/invowk/shipyard/pkg/container"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}

	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("config = %+v, want defaults %+v", *cfg, *want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cuePath := testutil.MustWriteFile(t, dir, "config.cue", `
container_engine: "podman"
timeouts: {
	start: "3s"
	sweep: "100ms"
}
log: level: "debug"
`)

	cfg, path, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != cuePath {
		t.Errorf("resolved path = %q, want %q", path, cuePath)
	}
	if cfg.ContainerEngine != container.EngineTypePodman {
		t.Errorf("ContainerEngine = %q, want podman", cfg.ContainerEngine)
	}
	if cfg.Timeouts.Start != 3*time.Second {
		t.Errorf("Timeouts.Start = %s, want 3s", cfg.Timeouts.Start)
	}
	if cfg.Timeouts.Sweep != 100*time.Millisecond {
		t.Errorf("Timeouts.Sweep = %s, want 100ms", cfg.Timeouts.Sweep)
	}
	// Unset keys keep their defaults.
	if cfg.Timeouts.Stop != container.DefaultStopTimeout {
		t.Errorf("Timeouts.Stop = %s, want default %s", cfg.Timeouts.Stop, container.DefaultStopTimeout)
	}
	if cfg.Log.Level != LogLevelDebug {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, _, err := loadWithOptions(t.Context(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %T, want *issue.ActionableError", err)
	}
	if ae.Resource != missing {
		t.Errorf("Resource = %q, want %q", ae.Resource, missing)
	}
	if len(ae.Suggestions) == 0 {
		t.Error("expected suggestions")
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown engine",
			content: `container_engine: "lxc"`,
			want:    "container_engine",
		},
		{
			name:    "malformed duration",
			content: `timeouts: start: "soon"`,
			want:    "timeouts.start",
		},
		{
			name:    "unknown field",
			content: `registry: "quay.io"`,
			want:    "registry",
		},
		{
			name:    "bad log level",
			content: `log: level: "trace"`,
			want:    "log.level",
		},
		{
			name:    "syntax error",
			content: `timeouts: {`,
			want:    "config.cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := testutil.MustWriteFile(t, t.TempDir(), "config.cue", tt.content)
			_, _, err := loadWithOptions(t.Context(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Operation != "load configuration" {
				t.Fatalf("error = %v, want a load configuration ActionableError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ZeroTimeoutRejected(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "config.cue", `timeouts: stats: "0s"`)
	_, _, err := loadWithOptions(t.Context(), LoadOptions{ConfigFilePath: path})
	if !errors.Is(err, ErrInvalidTimeout) {
		t.Fatalf("error = %v, want ErrInvalidTimeout", err)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cuePath := testutil.MustWriteFile(t, dir, "config.cue", `
container_engine: "docker"
timeouts: start: "3s"
`)
	t.Setenv("SHIPYARD_CONTAINER_ENGINE", "podman")
	t.Setenv("SHIPYARD_TIMEOUTS_START", "750ms")
	t.Setenv("SHIPYARD_LOG_LEVEL", "info")

	loaded, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != cuePath {
		t.Errorf("Path = %q, want %q", loaded.Path, cuePath)
	}
	cfg := loaded.Config
	if cfg.ContainerEngine != container.EngineTypePodman {
		t.Errorf("ContainerEngine = %q, want podman", cfg.ContainerEngine)
	}
	if cfg.Timeouts.Start != 750*time.Millisecond {
		t.Errorf("Timeouts.Start = %s, want 750ms", cfg.Timeouts.Start)
	}
	if cfg.Log.Level != LogLevelInfo {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_InvalidEnvironmentEngine(t *testing.T) {
	t.Setenv("SHIPYARD_CONTAINER_ENGINE", "lxc")

	_, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, container.ErrInvalidEngineType) {
		t.Fatalf("Load() error = %v, want ErrInvalidEngineType", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestLoad_OversizedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.cue")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(6 * 1024 * 1024); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, _, err = loadWithOptions(t.Context(), LoadOptions{ConfigFilePath: path})
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("error = %v, want size limit error", err)
	}
}

func TestCreateDefaultConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "shipyard")
	path, err := CreateDefaultConfig(dir)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}

	cfg, resolved, err := loadWithOptions(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loading generated config: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("round-tripped config = %+v, want defaults", *cfg)
	}

	// A second call keeps the existing file.
	testutil.MustWriteFile(t, dir, "config.cue", `container_engine: "podman"`)
	if _, err := CreateDefaultConfig(dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `container_engine: "podman"` {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unixes")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(base, AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestProvider_LoadDefaultsHasNoPath(t *testing.T) {
	t.Parallel()

	loaded, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != "" {
		t.Errorf("Path = %q, want empty", loaded.Path)
	}
	if *loaded.Config != *DefaultConfig() {
		t.Errorf("Config = %+v, want defaults", *loaded.Config)
	}
}

func TestProvider_LoadExplicitFilePath(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "shipyard.cue", `log: level: "error"`)
	loaded, err := NewProvider().Load(t.Context(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != path {
		t.Errorf("Path = %q, want %q", loaded.Path, path)
	}
	if loaded.Config.Log.Level != LogLevelError {
		t.Errorf("Log.Level = %q, want error", loaded.Config.Log.Level)
	}
}

func TestLoad_UnresolvableConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on the XDG/HOME lookup used on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")

	_, err := NewProvider().Load(t.Context(), LoadOptions{})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
	}
	if ae.Operation != "resolve configuration directory" {
		t.Errorf("Operation = %q, want %q", ae.Operation, "resolve configuration directory")
	}
	if !strings.Contains(err.Error(), "home directory") {
		t.Errorf("error = %q, want the home directory cause", err)
	}
}
