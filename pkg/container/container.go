// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Container states as reported by `inspect --format {{.State.Status}}`.
const (
	StatusCreated = "created"
	StatusRunning = "running"
	StatusExited  = "exited"
)

// lastStatusTimeout bounds the status query made after a wait expires.
const lastStatusTimeout = 500 * time.Millisecond

type (
	// engine is the shared, immutable context every handle issues commands
	// through: the resolved settings and one executor.
	engine struct {
		settings Settings
		exec     *Executor
	}

	// Container is a reference to one engine container. It holds nothing but
	// the id: every method queries the engine afresh, so a Container is never
	// stale and may be shared between goroutines. Callers must still not race
	// Stop or Remove on the same container without their own synchronization.
	Container struct {
		id  string
		eng *engine
	}
)

func (e *engine) command(subcommand string) Command {
	return NewCommand(e.settings.Binary, subcommand)
}

// ID returns the engine-assigned container identifier.
func (c *Container) ID() string { return c.id }

// String implements fmt.Stringer.
func (c *Container) String() string {
	return fmt.Sprintf("%s container %s", c.eng.settings.Engine, c.id)
}

// Start starts the container and waits up to StartTimeout for it to be
// running or exited. A container that exits before the wait observes it
// running is a successful start.
func (c *Container) Start(ctx context.Context) error {
	if _, err := c.eng.exec.Execute(ctx, c.eng.command("start").Arg(c.id)); err != nil {
		return err
	}

	_, err := c.waitFor(ctx, "start", c.eng.settings.StartTimeout, StatusRunning, StatusExited)
	var te *TimeoutError
	if errors.As(err, &te) && te.LastStatus == StatusExited {
		return nil
	}
	return err
}

// Stop stops the container and waits up to StopTimeout for it to exit.
func (c *Container) Stop(ctx context.Context) error {
	if _, err := c.eng.exec.Execute(ctx, c.eng.command("stop").Arg(c.id)); err != nil {
		return err
	}
	_, err := c.waitFor(ctx, "stop", c.eng.settings.StopTimeout, StatusExited)
	return err
}

// Remove removes the container, forcibly (killing it if needed) when force is set.
func (c *Container) Remove(ctx context.Context, force bool) error {
	cmd := c.eng.command("rm")
	if force {
		cmd = cmd.Flag("-f")
	}
	_, err := c.eng.exec.Execute(ctx, cmd.Arg(c.id))
	return err
}

// Exists reports whether the engine knows the container. It never fails:
// an engine that cannot be run reads as "does not exist".
func (c *Container) Exists(ctx context.Context) bool {
	result, err := c.eng.exec.Run(ctx, c.eng.command("container").Arg("inspect", c.id))
	if err != nil {
		c.eng.settings.Logger.Debug("container existence check failed", "container", c.id, "error", err)
		return false
	}
	return result.Success()
}

// Status returns the engine state (created, running, exited, ...). An
// unknown id yields a *NotFoundError.
func (c *Container) Status(ctx context.Context) (string, error) {
	out, err := c.eng.exec.Execute(ctx, c.eng.command("inspect").Option("format", "{{.State.Status}}").Arg(c.id))
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// Stats waits up to StatsTimeout for a stats sample from the running
// container. Fetch failures while running are retried; a container that has
// exited fails immediately with a *CommandFailedError.
func (c *Container) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats, err := poll(ctx, c.eng.settings.StatsTimeout, func(ctx context.Context) (Stats, bool, error) {
		status, err := c.Status(ctx)
		if err != nil {
			return Stats{}, false, pollAbort(err)
		}
		switch status {
		case StatusRunning:
			s, err := c.fetchStats(ctx)
			if err != nil {
				c.eng.settings.Logger.Debug("stats not ready", "container", c.id, "error", err)
				return Stats{}, false, nil
			}
			return s, true, nil
		case StatusExited:
			return Stats{}, false, &CommandFailedError{
				Command: c.statsCommand().Build(),
				Message: fmt.Sprintf("stats %s: container exited after %s (last status: %s)",
					c.id, time.Since(start).Round(time.Millisecond), status),
			}
		default:
			return Stats{}, false, nil
		}
	})
	return stats, c.enrichTimeout(ctx, err, "stats", StatusRunning)
}

// ReadFile returns the contents of path inside the running container.
func (c *Container) ReadFile(ctx context.Context, path string) (string, error) {
	return c.eng.exec.Execute(ctx, c.eng.command("exec").Arg(c.id, "cat", path))
}

// FileExists reports whether path is a regular file inside the running container.
func (c *Container) FileExists(ctx context.Context, path string) bool {
	result, err := c.eng.exec.Run(ctx, c.eng.command("exec").Arg(c.id, "test", "-f", path))
	if err != nil {
		c.eng.settings.Logger.Debug("file existence check failed", "container", c.id, "path", path, "error", err)
		return false
	}
	return result.Success()
}

// Exec runs argv inside the running container and returns its stdout.
func (c *Container) Exec(ctx context.Context, argv ...string) (string, error) {
	return c.eng.exec.Execute(ctx, c.eng.command("exec").Arg(c.id).Arg(argv...))
}

// Logs streams the container's output to sink. With follow set, it keeps
// streaming until the container stops or ctx is cancelled.
func (c *Container) Logs(ctx context.Context, follow bool, sink LineSink) error {
	cmd := c.eng.command("logs")
	if follow {
		cmd = cmd.Flag("-f")
	}
	return c.eng.exec.ExecuteStreaming(ctx, cmd.Arg(c.id), sink)
}

// waitFor polls Status until it reports one of expected or timeout elapses.
// A status query failing with anything other than CommandFailed (the
// container is gone, the engine cannot be run) ends the wait immediately.
func (c *Container) waitFor(ctx context.Context, op string, timeout time.Duration, expected ...string) (string, error) {
	status, err := poll(ctx, timeout, func(ctx context.Context) (string, bool, error) {
		s, err := c.Status(ctx)
		if err != nil {
			return "", false, pollAbort(err)
		}
		return s, slices.Contains(expected, s), nil
	})
	return status, c.enrichTimeout(ctx, err, op, expected...)
}

// enrichTimeout fills in a *TimeoutError from poll with the operation and
// one last status query, bounded by lastStatusTimeout. A failing final query
// leaves LastStatus empty.
func (c *Container) enrichTimeout(ctx context.Context, err error, op string, expected ...string) error {
	var te *TimeoutError
	if !errors.As(err, &te) {
		return err
	}
	te.Operation = op
	te.ContainerID = c.id
	te.Expected = expected

	statusCtx, cancel := context.WithTimeout(ctx, lastStatusTimeout)
	defer cancel()
	if s, serr := c.Status(statusCtx); serr == nil {
		te.LastStatus = s
	}
	return te
}

// sampleStats is the single-shot aggregation check: resolved is true once the
// container produced a sample (ok) or exited without one.
func (c *Container) sampleStats(ctx context.Context) (s Stats, ok, resolved bool) {
	status, err := c.Status(ctx)
	if err != nil {
		return Stats{}, false, false
	}
	switch status {
	case StatusRunning:
		s, err := c.fetchStats(ctx)
		if err != nil {
			return Stats{}, false, false
		}
		return s, true, true
	case StatusExited:
		return Stats{}, false, true
	default:
		return Stats{}, false, false
	}
}

func (c *Container) statsCommand() Command {
	return c.eng.command("stats").Flag("--no-stream").Option("format", "{{json .}}").Arg(c.id)
}

func (c *Container) fetchStats(ctx context.Context) (Stats, error) {
	out, err := c.eng.exec.Execute(ctx, c.statsCommand())
	if err != nil {
		return Stats{}, err
	}
	raw, err := ParseStatsOutput(out)
	if err != nil {
		return Stats{}, &EngineError{Op: "stats", Err: err}
	}
	return NewStats(raw), nil
}

// pollAbort decides whether a failed status check ends a wait. Plain command
// failures are treated as "not yet"; everything else is terminal.
func pollAbort(err error) error {
	if IsCommandFailed(err) {
		return nil
	}
	return err
}
