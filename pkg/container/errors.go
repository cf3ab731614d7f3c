// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEngine is the base sentinel for every error produced by this package.
	// errors.Is(err, ErrEngine) holds for NotFoundError, TimeoutError,
	// CommandFailedError, and EngineError alike.
	ErrEngine = errors.New("container engine error")

	// ErrNotFound is the sentinel error wrapped by NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrTimeout is the sentinel error wrapped by TimeoutError.
	ErrTimeout = errors.New("timed out")

	// ErrCommandFailed is the sentinel error wrapped by CommandFailedError.
	ErrCommandFailed = errors.New("command failed")

	// ErrNoEngineAvailable is the sentinel error wrapped by EngineNotAvailableError.
	ErrNoEngineAvailable = errors.New("no container engine available")
)

type (
	// NotFoundError is returned when the engine reports that the target
	// container, object, or image does not exist.
	NotFoundError struct {
		// Command is the argument vector that produced the error.
		Command []string
		// Stderr is the raw engine error output.
		Stderr string
	}

	// TimeoutError is returned when a wait operation's deadline elapsed
	// before the expected state was observed.
	TimeoutError struct {
		// Operation names the wait (e.g., "start", "stop", "stats").
		Operation string
		// ContainerID identifies the container being waited on.
		ContainerID string
		// Expected lists the states that would have ended the wait.
		Expected []string
		// LastStatus is the last status observed, empty when unknown.
		LastStatus string
		// Elapsed is the time spent waiting.
		Elapsed time.Duration
	}

	// CommandFailedError is returned when an engine invocation exits
	// unsuccessfully for any reason other than not-found.
	CommandFailedError struct {
		// Command is the argument vector that produced the error.
		Command []string
		// Message is the raw stderr, or a synthesized message when stderr was empty.
		Message string
		// ExitCode is the engine exit code (0 when synthesized above the executor).
		ExitCode int
	}

	// EngineError is the catch-all for unanticipated failures (the engine
	// binary cannot be spawned, output cannot be read) plumbed through
	// without reclassification.
	EngineError struct {
		Op  string
		Err error
	}

	// EngineNotAvailableError is returned when no usable container engine is found.
	EngineNotAvailableError struct {
		Engine string
		Reason string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no such object"
	}
	return "not found: " + msg
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Is reports whether target is the package base sentinel.
func (e *NotFoundError) Is(target error) bool { return target == ErrEngine }

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s: timed out after %s", e.Operation, e.ContainerID, e.Elapsed.Round(time.Millisecond))
	if len(e.Expected) > 0 {
		fmt.Fprintf(&sb, " waiting for %s", strings.Join(e.Expected, "|"))
	}
	if e.LastStatus != "" {
		fmt.Fprintf(&sb, " (last status: %s)", e.LastStatus)
	}
	return sb.String()
}

// Unwrap returns ErrTimeout for errors.Is() compatibility.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// Is reports whether target is the package base sentinel.
func (e *TimeoutError) Is(target error) bool { return target == ErrEngine }

// Error implements the error interface.
func (e *CommandFailedError) Error() string {
	return strings.TrimSpace(e.Message)
}

// Unwrap returns ErrCommandFailed for errors.Is() compatibility.
func (e *CommandFailedError) Unwrap() error { return ErrCommandFailed }

// Is reports whether target is the package base sentinel.
func (e *CommandFailedError) Is(target error) bool { return target == ErrEngine }

// Error implements the error interface.
func (e *EngineError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error { return e.Err }

// Is reports whether target is the package base sentinel.
func (e *EngineError) Is(target error) bool { return target == ErrEngine }

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrNoEngineAvailable for errors.Is() compatibility.
func (e *EngineNotAvailableError) Unwrap() error { return ErrNoEngineAvailable }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCommandFailed reports whether err is, or wraps, a CommandFailedError.
func IsCommandFailed(err error) bool { return errors.Is(err, ErrCommandFailed) }
