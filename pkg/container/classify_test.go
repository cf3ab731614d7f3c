// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyFailure(t *testing.T) {
	t.Parallel()

	argv := []string{"docker", "inspect", "abc"}
	tests := []struct {
		name        string
		stderr      string
		wantNotFnd  bool
		wantMessage string
	}{
		{name: "docker no such container", stderr: "Error: No such container: abc", wantNotFnd: true},
		{name: "docker no such object", stderr: "Error: No such object: abc\n", wantNotFnd: true},
		{name: "podman no container", stderr: "Error: no container with name or ID \"abc\" found: no such container", wantNotFnd: true},
		{name: "podman image not known", stderr: "Error: alpine: image not known", wantNotFnd: true},
		{name: "other stderr", stderr: "Error: permission denied\n", wantMessage: "Error: permission denied"},
		{name: "empty stderr", stderr: "  ", wantMessage: "command failed: docker inspect abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := classifyFailure(argv, &ExecutionResult{Stderr: tt.stderr, ExitCode: 1})

			if !errors.Is(err, ErrEngine) {
				t.Errorf("errors.Is(err, ErrEngine) = false for %v", err)
			}
			if got := IsNotFound(err); got != tt.wantNotFnd {
				t.Fatalf("IsNotFound() = %v, want %v (err: %v)", got, tt.wantNotFnd, err)
			}
			if tt.wantNotFnd {
				if IsCommandFailed(err) {
					t.Errorf("not-found error must not be a CommandFailedError: %v", err)
				}
				return
			}

			var cf *CommandFailedError
			if !errors.As(err, &cf) {
				t.Fatalf("error = %T, want *CommandFailedError", err)
			}
			if cf.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", cf.Message, tt.wantMessage)
			}
			if cf.ExitCode != 1 {
				t.Errorf("ExitCode = %d, want 1", cf.ExitCode)
			}
		})
	}
}

func TestIsNotRunningFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "docker not running", err: &CommandFailedError{Message: "Error response from daemon: container abc is not running"}, want: true},
		{name: "podman improper state", err: &CommandFailedError{Message: "Error: can only stop running containers: abc is in state exited: container state improper"}, want: true},
		{name: "already stopped", err: &CommandFailedError{Message: "container already stopped"}, want: true},
		{name: "other failure", err: &CommandFailedError{Message: "permission denied"}, want: false},
		{name: "not found is not a downgrade", err: &NotFoundError{Stderr: "no such container: abc is not running"}, want: false},
		{name: "plain error", err: errors.New("not running"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isNotRunningFailure(tt.err); got != tt.want {
				t.Errorf("isNotRunningFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "wrapped context deadline", err: fmt.Errorf("create: %w", context.DeadlineExceeded), want: false},
		{name: "generic error", err: errors.New("invalid reference format"), want: false},
		{name: "not found mentioning a network error", err: &NotFoundError{Stderr: "no such image: connection refused"}, want: false},

		{name: "ping_group_range", err: &CommandFailedError{Message: "error reading /proc/sys/net/ipv4/ping_group_range"}, want: true},
		{name: "OCI runtime error", err: &CommandFailedError{Message: "OCI runtime error: container_linux.go"}, want: true},
		{name: "temporary failure resolving", err: errors.New("Temporary failure resolving 'registry-1.docker.io'"), want: true},
		{name: "could not resolve host", err: errors.New("Could not resolve host: ghcr.io"), want: true},
		{name: "connection timed out", err: errors.New("dial tcp: connection timed out"), want: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "overlay mount", err: errors.New("error creating overlay mount to /var/lib/containers"), want: true},
		{name: "mounting layer", err: errors.New("error mounting layer: invalid argument"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransientError(tt.err); got != tt.want {
				t.Errorf("IsTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
