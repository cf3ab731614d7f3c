// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invowk/shipyard/pkg/container"
)

const (
	// LogLevelDebug logs every engine command.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs lifecycle milestones.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs cleanup failures and retries only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidTimeout is the sentinel error wrapped by InvalidTimeoutError.
	ErrInvalidTimeout = errors.New("invalid timeout")
	// ErrInvalidBinary is the sentinel error wrapped by InvalidBinaryError.
	ErrInvalidBinary = errors.New("invalid engine binary")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Config is the loaded configuration. The mapstructure tags match the
	// CUE schema and, upper-cased with "." → "_", the SHIPYARD_* variables.
	Config struct {
		// ContainerEngine selects the engine CLI (docker or podman).
		ContainerEngine container.EngineType `json:"container_engine" mapstructure:"container_engine"`
		// Binary overrides the executable; empty means the engine name.
		Binary   string         `json:"binary"   mapstructure:"binary"`
		Timeouts TimeoutsConfig `json:"timeouts" mapstructure:"timeouts"`
		Log      LogConfig      `json:"log"      mapstructure:"log"`
	}

	// TimeoutsConfig holds the wait budgets of container operations.
	TimeoutsConfig struct {
		Start       time.Duration `json:"start"       mapstructure:"start"`
		Stop        time.Duration `json:"stop"        mapstructure:"stop"`
		Stats       time.Duration `json:"stats"       mapstructure:"stats"`
		Aggregation time.Duration `json:"aggregation" mapstructure:"aggregation"`
		// Sweep is the pause between aggregation sweeps.
		Sweep time.Duration `json:"sweep" mapstructure:"sweep"`
	}

	// LogConfig configures the logger built by NewLogger.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// LogLevel is the minimum severity written by the logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidTimeoutError is returned when a timeout is zero or negative.
	InvalidTimeoutError struct {
		Field string
		Value time.Duration
	}

	// InvalidBinaryError is returned when Binary is set but whitespace-only.
	InvalidBinaryError struct {
		Value string
	}

	// InvalidConfigError aggregates every field error found in a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: container.EngineTypeDocker,
		Timeouts: TimeoutsConfig{
			Start:       container.DefaultStartTimeout,
			Stop:        container.DefaultStopTimeout,
			Stats:       container.DefaultStatsTimeout,
			Aggregation: container.DefaultAggregationTimeout,
			Sweep:       container.DefaultSweepInterval,
		},
		Log: LogConfig{Level: LogLevelWarn},
	}
}

// IsValid returns whether the Config has valid fields, and the field errors
// wrapped in a single *InvalidConfigError when it does not.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if err := c.ContainerEngine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Binary != "" && strings.TrimSpace(c.Binary) == "" {
		errs = append(errs, &InvalidBinaryError{Value: c.Binary})
	}
	if valid, fieldErrs := c.Timeouts.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate is IsValid as a single error.
func (c Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// Settings builds the container.Settings an Orchestrator is created with.
// A nil logger discards output.
func (c Config) Settings(logger *slog.Logger) container.Settings {
	return container.Settings{
		Engine:             c.ContainerEngine,
		Binary:             strings.TrimSpace(c.Binary),
		StartTimeout:       c.Timeouts.Start,
		StopTimeout:        c.Timeouts.Stop,
		StatsTimeout:       c.Timeouts.Stats,
		AggregationTimeout: c.Timeouts.Aggregation,
		SweepInterval:      c.Timeouts.Sweep,
		Logger:             logger,
	}
}

// IsValid reports whether every timeout is positive.
func (t TimeoutsConfig) IsValid() (bool, []error) {
	var errs []error
	for _, f := range []struct {
		name  string
		value time.Duration
	}{
		{"timeouts.start", t.Start},
		{"timeouts.stop", t.Stop},
		{"timeouts.stats", t.Stats},
		{"timeouts.aggregation", t.Aggregation},
		{"timeouts.sweep", t.Sweep},
	} {
		if f.value <= 0 {
			errs = append(errs, &InvalidTimeoutError{Field: f.name, Value: f.value})
		}
	}
	return len(errs) == 0, errs
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface for InvalidTimeoutError.
func (e *InvalidTimeoutError) Error() string {
	return fmt.Sprintf("%s must be positive, got %s", e.Field, e.Value)
}

// Unwrap returns ErrInvalidTimeout for errors.Is() compatibility.
func (e *InvalidTimeoutError) Unwrap() error { return ErrInvalidTimeout }

// Error implements the error interface for InvalidBinaryError.
func (e *InvalidBinaryError) Error() string {
	return fmt.Sprintf("engine binary %q must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidBinary for errors.Is() compatibility.
func (e *InvalidBinaryError) Unwrap() error { return ErrInvalidBinary }

// Error lists every field error on one line.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors, so errors.Is matches
// both the aggregate and the individual sentinels.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
