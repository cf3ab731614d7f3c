// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// StreamStdout tags lines read from the engine's standard output.
	StreamStdout StreamTag = "stdout"
	// StreamStderr tags lines read from the engine's standard error.
	StreamStderr StreamTag = "stderr"

	// maxLineSize bounds a single streamed line; longer lines abort scanning.
	maxLineSize = 1024 * 1024

	// commandWaitDelay bounds how long Wait lingers on the output pipes
	// after a cancelled engine process has been killed.
	commandWaitDelay = time.Second
)

type (
	// ExecCommandFunc is the signature of exec.CommandContext.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// StreamTag identifies which output stream a line came from.
	StreamTag string

	// LineSink receives engine output one line at a time, as it is produced.
	// Calls are serialized; a sink never runs concurrently with itself.
	LineSink func(line string, stream StreamTag)

	// ExecutionResult is the captured outcome of one engine invocation.
	ExecutionResult struct {
		Stdout   string
		Stderr   string
		ExitCode int
	}

	// ExecutorOption configures an Executor.
	ExecutorOption func(*Executor)

	// Executor runs engine Commands as subprocesses. It never retries; retry
	// policy belongs to the caller. An Executor is safe for concurrent use.
	Executor struct {
		execCommand  ExecCommandFunc
		envOverrides map[string]string // per-command env overlays (e.g., CONTAINERS_CONF_OVERRIDE)
		logger       *slog.Logger
	}
)

// Success reports whether the engine exited with status zero.
func (r *ExecutionResult) Success() bool { return r.ExitCode == 0 }

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) ExecutorOption {
	return func(e *Executor) {
		e.execCommand = fn
	}
}

// WithEnvOverride adds an environment variable applied to every subprocess
// on top of the inherited process environment.
func WithEnvOverride(key, value string) ExecutorOption {
	return func(e *Executor) {
		if e.envOverrides == nil {
			e.envOverrides = make(map[string]string)
		}
		e.envOverrides[key] = value
	}
}

// WithExecutorLogger sets the logger used for command traces.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor that spawns real subprocesses unless
// WithExecCommand says otherwise.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		execCommand: exec.CommandContext,
		logger:      discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run spawns the command, waits for it to exit, and captures its output.
// A non-zero exit is reported through ExecutionResult.ExitCode, not as an
// error; only failures to run the engine at all return an *EngineError.
func (e *Executor) Run(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	argv := cmd.Build()
	if len(argv) == 0 {
		return nil, &EngineError{Op: "run", Err: errors.New("empty command")}
	}

	c := e.createCommand(ctx, argv)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	e.logger.Debug("engine command", "cmd", cmd.String())
	exitCode, err := exitStatus(ctx, c.Run())
	if err != nil {
		return nil, &EngineError{Op: cmd.Subcommand(), Err: err}
	}

	result := &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
	if !result.Success() {
		e.logger.Debug("engine command failed", "cmd", cmd.String(), "exitCode", exitCode)
	}
	return result, nil
}

// Execute runs the command and returns its stdout. A non-zero exit is
// classified into a *NotFoundError or *CommandFailedError.
func (e *Executor) Execute(ctx context.Context, cmd Command) (string, error) {
	result, err := e.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return "", classifyFailure(cmd.Build(), result)
	}
	return result.Stdout, nil
}

// ExecuteStreaming runs the command and hands every stdout and stderr line to
// sink as soon as it is read. All output has been delivered by the time the
// exit status is reported; a non-zero exit is classified like Execute does,
// using the stderr lines seen. A nil sink discards output.
func (e *Executor) ExecuteStreaming(ctx context.Context, cmd Command, sink LineSink) error {
	argv := cmd.Build()
	if len(argv) == 0 {
		return &EngineError{Op: "stream", Err: errors.New("empty command")}
	}

	c := e.createCommand(ctx, argv)
	stdoutPipe, err := c.StdoutPipe()
	if err != nil {
		return &EngineError{Op: cmd.Subcommand(), Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrPipe, err := c.StderrPipe()
	if err != nil {
		return &EngineError{Op: cmd.Subcommand(), Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	e.logger.Debug("engine command (streaming)", "cmd", cmd.String())
	if err := c.Start(); err != nil {
		return &EngineError{Op: cmd.Subcommand(), Err: err}
	}

	var (
		mu          sync.Mutex
		stderrLines []string
	)
	deliver := func(line string, tag StreamTag) {
		mu.Lock()
		defer mu.Unlock()
		if tag == StreamStderr {
			stderrLines = append(stderrLines, line)
		}
		if sink != nil {
			sink(line, tag)
		}
	}

	// Both pipes must be drained before Wait, which closes them.
	var g errgroup.Group
	g.Go(func() error { return scanLines(stdoutPipe, StreamStdout, deliver) })
	g.Go(func() error { return scanLines(stderrPipe, StreamStderr, deliver) })
	scanErr := g.Wait()

	exitCode, err := exitStatus(ctx, c.Wait())
	if err != nil {
		return &EngineError{Op: cmd.Subcommand(), Err: err}
	}
	if exitCode != 0 {
		return classifyFailure(argv, &ExecutionResult{
			Stderr:   strings.Join(stderrLines, "\n"),
			ExitCode: exitCode,
		})
	}
	if scanErr != nil {
		return &EngineError{Op: cmd.Subcommand(), Err: scanErr}
	}
	return nil
}

// createCommand creates an exec.Cmd for argv with env overrides applied.
func (e *Executor) createCommand(ctx context.Context, argv []string) *exec.Cmd {
	cmd := e.execCommand(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = commandWaitDelay
	if len(e.envOverrides) > 0 {
		// A nil Env inherits everything; once set, only the listed vars pass through.
		if cmd.Env == nil {
			cmd.Env = os.Environ()
		}
		for k, v := range e.envOverrides {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

// exitStatus maps the error from Cmd.Run/Wait to an exit code. Errors that
// are not an exit status (spawn failure, cancelled context) are returned.
func exitStatus(ctx context.Context, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func scanLines(r io.Reader, tag StreamTag, deliver LineSink) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		deliver(scanner.Text(), tag)
	}
	if err := scanner.Err(); err != nil {
		// Keep the child from blocking on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("read %s: %w", tag, err)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
