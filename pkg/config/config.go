// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/shipyard/internal/cueutil"
	"github.com/invowk/shipyard/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "shipyard"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment override (SHIPYARD_TIMEOUTS_START).
	EnvPrefix = "SHIPYARD"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the shipyard configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions layers defaults, the CUE file and the environment, in that
// order, and returns the validated result with the path of the file used
// ("" when running on defaults).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("binary", defaults.Binary)
	v.SetDefault("timeouts.start", defaults.Timeouts.Start)
	v.SetDefault("timeouts.stop", defaults.Timeouts.Stop)
	v.SetDefault("timeouts.stats", defaults.Timeouts.Stats)
	v.SetDefault("timeouts.aggregation", defaults.Timeouts.Aggregation)
	v.SetDefault("timeouts.sweep", defaults.Timeouts.Sweep)
	v.SetDefault("log.level", defaults.Log.Level)

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				Wrap(err).
				BuildError()
		}
	}

	// Environment wins over the file; every key has a default, so
	// Unmarshal sees all of them.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Timeouts must be positive durations such as \"2s\" or \"500ms\"").
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for stale values").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath picks the config file: an explicit path must exist;
// otherwise the config directory is tried, then the working directory.
// No file at all is not an error.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", issue.WrapWithOperation(err, "resolve configuration directory")
		}
		cfgDir = dir
	}

	fileName := ConfigFileName + "." + ConfigFileExt
	if cuePath := filepath.Join(cfgDir, fileName); fileExists(cuePath) {
		return cuePath, nil
	}
	if fileExists(fileName) {
		return fileName, nil
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Concrete(false) because every field is optional; the decoded map is merged
// so unset keys keep their defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := cueutil.ReadFileLimited(path, cueutil.DefaultMaxFileSize)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a config.cue holding the defaults into dir (the
// platform config directory when dir is empty). An existing file is left
// alone. It returns the file's path.
func CreateDefaultConfig(dir string) (string, error) {
	if dir == "" {
		d, err := ConfigDir()
		if err != nil {
			return "", err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE renders cfg as a config.cue document accepted by the schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Shipyard configuration file.\n\n")
	fmt.Fprintf(&sb, "container_engine: %q\n", cfg.ContainerEngine)
	if cfg.Binary != "" {
		fmt.Fprintf(&sb, "binary: %q\n", cfg.Binary)
	}

	sb.WriteString("\ntimeouts: {\n")
	fmt.Fprintf(&sb, "\tstart:       %q\n", cfg.Timeouts.Start.String())
	fmt.Fprintf(&sb, "\tstop:        %q\n", cfg.Timeouts.Stop.String())
	fmt.Fprintf(&sb, "\tstats:       %q\n", cfg.Timeouts.Stats.String())
	fmt.Fprintf(&sb, "\taggregation: %q\n", cfg.Timeouts.Aggregation.String())
	fmt.Fprintf(&sb, "\tsweep:       %q\n", cfg.Timeouts.Sweep.String())
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	return sb.String()
}
