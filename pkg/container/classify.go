// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"strings"
)

// The engines expose no structured error channel, so every decision about a
// failed invocation is made by matching its stderr against these tables.
// All matching is case-insensitive; patterns are stored lower-case.
var (
	// notFoundPatterns mark a missing container, object, or image
	// (Docker: "No such container", "No such object"; Podman: "no container
	// with name or ID", "image not known").
	notFoundPatterns = []string{
		"no such container",
		"no such object",
		"no container with name or id",
		"no such image",
		"image not known",
	}

	// notRunningPatterns mark a stop issued against a container that is
	// already stopped (Podman: "can only stop running containers ...
	// container state improper").
	notRunningPatterns = []string{
		"not running",
		"already stopped",
		"can only stop running containers",
	}

	// transientPatterns mark engine failures that may succeed on retry:
	// rootless Podman races, OCI runtime hiccups, network blips during image
	// pulls, and overlay storage races.
	transientPatterns = []string{
		"ping_group_range",
		"oci runtime error",
		"temporary failure resolving",
		"could not resolve host",
		"connection timed out",
		"connection refused",
		"error creating overlay mount",
		"error mounting layer",
	}
)

// classifyFailure turns an unsuccessful ExecutionResult into a typed error.
// This is the only place that interprets engine stderr for not-found.
func classifyFailure(argv []string, result *ExecutionResult) error {
	stderr := strings.TrimSpace(result.Stderr)
	if containsAny(stderr, notFoundPatterns) {
		return &NotFoundError{Command: argv, Stderr: stderr}
	}
	if stderr != "" {
		return &CommandFailedError{Command: argv, Message: stderr, ExitCode: result.ExitCode}
	}
	return &CommandFailedError{
		Command:  argv,
		Message:  "command failed: " + strings.Join(argv, " "),
		ExitCode: result.ExitCode,
	}
}

// isNotRunningFailure reports whether err is a CommandFailedError whose
// message says the container was not running.
func isNotRunningFailure(err error) bool {
	var cf *CommandFailedError
	if !errors.As(err, &cf) {
		return false
	}
	return containsAny(cf.Message, notRunningPatterns)
}

// IsTransientError reports whether err is a transient container engine error
// that may succeed on retry.
//
// Context cancellation and deadline errors are explicitly non-transient because
// retrying a cancelled operation is never useful. NotFound is never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	return containsAny(err.Error(), transientPatterns)
}

func containsAny(text string, patterns []string) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
