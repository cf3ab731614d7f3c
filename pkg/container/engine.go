// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// EngineTypePodman drives the podman CLI.
	EngineTypePodman EngineType = "podman"
	// EngineTypeDocker drives the docker CLI.
	EngineTypeDocker EngineType = "docker"

	// DefaultStartTimeout bounds the wait for a started container to run (or exit).
	DefaultStartTimeout = 2 * time.Second
	// DefaultStopTimeout bounds the wait for a stopped container to exit.
	DefaultStopTimeout = 5 * time.Second
	// DefaultStatsTimeout bounds the wait for a usable stats sample.
	DefaultStatsTimeout = 10 * time.Second
	// DefaultAggregationTimeout is the shared budget of AggregatedStatsForImage.
	DefaultAggregationTimeout = 10 * time.Second
	// DefaultSweepInterval is the fixed pause between aggregation sweeps.
	DefaultSweepInterval = 250 * time.Millisecond
)

// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
var ErrInvalidEngineType = errors.New("invalid container engine type")

type (
	// EngineType identifies the container engine CLI.
	EngineType string

	// InvalidEngineTypeError is returned when an EngineType is not recognized.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// Settings is the explicit, process-wide configuration handed to an
	// Orchestrator and shared by every Container it creates. Zero durations
	// fall back to the package defaults; a nil Logger discards output.
	Settings struct {
		// Engine selects the engine CLI. Defaults to docker.
		Engine EngineType
		// Binary overrides the executable name or path (defaults to Engine).
		Binary string

		StartTimeout       time.Duration
		StopTimeout        time.Duration
		StatsTimeout       time.Duration
		AggregationTimeout time.Duration
		SweepInterval      time.Duration

		// Logger receives cleanup warnings and command traces.
		Logger *slog.Logger
	}
)

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidEngineType for errors.Is() compatibility.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// Validate returns an error if the EngineType is not a known engine.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// versionFormat returns the engine-specific version template.
func (t EngineType) versionFormat() string {
	if t == EngineTypePodman {
		return "{{.Version}}"
	}
	return "{{.Server.Version}}"
}

// DefaultSettings returns the documented defaults (docker; start 2s, stop
// 5s, stats 10s, aggregation 10s).
func DefaultSettings() Settings {
	return Settings{
		Engine:             EngineTypeDocker,
		StartTimeout:       DefaultStartTimeout,
		StopTimeout:        DefaultStopTimeout,
		StatsTimeout:       DefaultStatsTimeout,
		AggregationTimeout: DefaultAggregationTimeout,
		SweepInterval:      DefaultSweepInterval,
	}
}

// Validate returns an error if the engine is unknown or any duration is negative.
func (s Settings) Validate() error {
	var errs []error
	if s.Engine != "" {
		if err := s.Engine.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for name, d := range map[string]time.Duration{
		"start timeout":       s.StartTimeout,
		"stop timeout":        s.StopTimeout,
		"stats timeout":       s.StatsTimeout,
		"aggregation timeout": s.AggregationTimeout,
		"sweep interval":      s.SweepInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

// withDefaults fills every zero field from DefaultSettings.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Engine == "" {
		s.Engine = d.Engine
	}
	if s.Binary == "" {
		s.Binary = string(s.Engine)
	}
	if s.StartTimeout == 0 {
		s.StartTimeout = d.StartTimeout
	}
	if s.StopTimeout == 0 {
		s.StopTimeout = d.StopTimeout
	}
	if s.StatsTimeout == 0 {
		s.StatsTimeout = d.StatsTimeout
	}
	if s.AggregationTimeout == 0 {
		s.AggregationTimeout = d.AggregationTimeout
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = d.SweepInterval
	}
	if s.Logger == nil {
		s.Logger = discardLogger()
	}
	return s
}

// DetectEngine returns preferred if its CLI responds, otherwise the other
// engine if that one does.
func DetectEngine(ctx context.Context, preferred EngineType, opts ...ExecutorOption) (EngineType, error) {
	if err := preferred.Validate(); err != nil {
		return "", err
	}
	fallback := EngineTypePodman
	if preferred == EngineTypePodman {
		fallback = EngineTypeDocker
	}

	x := NewExecutor(opts...)
	if engineAvailable(ctx, x, preferred) {
		return preferred, nil
	}
	if engineAvailable(ctx, x, fallback) {
		return fallback, nil
	}
	return "", &EngineNotAvailableError{
		Engine: string(preferred),
		Reason: fmt.Sprintf("%s is not installed or not accessible, and %s fallback is also not available", preferred, fallback),
	}
}

// AutoDetectEngine tries podman first (common in rootless setups), then docker.
func AutoDetectEngine(ctx context.Context, opts ...ExecutorOption) (EngineType, error) {
	x := NewExecutor(opts...)
	for _, t := range []EngineType{EngineTypePodman, EngineTypeDocker} {
		if engineAvailable(ctx, x, t) {
			return t, nil
		}
	}
	return "", &EngineNotAvailableError{
		Engine: "any",
		Reason: "no container engine (podman or docker) is available on this system",
	}
}

func engineAvailable(ctx context.Context, x *Executor, t EngineType) bool {
	_, err := engineVersion(ctx, x, string(t), t)
	return err == nil
}

func engineVersion(ctx context.Context, x *Executor, binary string, t EngineType) (string, error) {
	out, err := x.Execute(ctx, NewCommand(binary, "version").Option("format", t.versionFormat()))
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", t, err)
	}
	return strings.TrimSpace(out), nil
}
