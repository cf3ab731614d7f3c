// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/invowk/shipyard/internal/issue"
)

// noLabelValue is what the engine prints for a missing label key.
const noLabelValue = "<no value>"

// ErrInvalidImageReference is returned when an image reference has no name
// after its last "/" (e.g. "" or "registry.local/").
var ErrInvalidImageReference = errors.New("invalid image reference")

type (
	// CreateOptions configures CreateContainer, RunContainer, and WithContainer.
	CreateOptions struct {
		// Name is the container name; empty lets the engine pick one.
		Name string
		// Options become "--key value" pairs (underscores in keys become
		// hyphens), emitted in key order. A []string value repeats the flag.
		Options map[string]any
		// Command replaces the image's default command when non-empty.
		Command []string
		// Sink, when set, receives the engine's output line by line as it is
		// produced (e.g. image pull progress).
		Sink LineSink
	}

	// RunOptions configures RunContainer.
	RunOptions = CreateOptions

	// Orchestrator is the process-wide entry point. It owns no container
	// state; it only carries the Settings and executor every Container it
	// returns shares.
	Orchestrator struct {
		eng *engine
	}
)

// NewOrchestrator validates settings, fills unset fields with defaults, and
// returns an Orchestrator. Executor options (a fake exec function, env
// overrides) apply to every command it issues.
func NewOrchestrator(settings Settings, opts ...ExecutorOption) (*Orchestrator, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid container settings: %w", err)
	}
	s := settings.withDefaults()
	execOpts := append([]ExecutorOption{WithExecutorLogger(s.Logger)}, opts...)
	return &Orchestrator{eng: &engine{settings: s, exec: NewExecutor(execOpts...)}}, nil
}

// Engine returns the engine type commands are issued to.
func (o *Orchestrator) Engine() EngineType { return o.eng.settings.Engine }

// Settings returns the resolved settings, defaults applied.
func (o *Orchestrator) Settings() Settings { return o.eng.settings }

// Container returns a handle for an existing container id or name.
func (o *Orchestrator) Container(id string) *Container {
	return &Container{id: id, eng: o.eng}
}

// Version returns the engine's version string.
func (o *Orchestrator) Version(ctx context.Context) (string, error) {
	return engineVersion(ctx, o.eng.exec, o.eng.settings.Binary, o.eng.settings.Engine)
}

// Available reports whether the engine responds to a version query.
func (o *Orchestrator) Available(ctx context.Context) bool {
	_, err := o.Version(ctx)
	return err == nil
}

// ImageExists reports whether the image is present locally.
func (o *Orchestrator) ImageExists(ctx context.Context, image string) bool {
	result, err := o.eng.exec.Run(ctx, o.eng.command("image").Arg("inspect", image))
	if err != nil {
		o.eng.settings.Logger.Debug("image existence check failed", "image", image, "error", err)
		return false
	}
	return result.Success()
}

// CreateContainer creates (but does not start) a container from image.
func (o *Orchestrator) CreateContainer(ctx context.Context, image string, opts CreateOptions) (*Container, error) {
	cmd := o.containerCommand("create", opts.Name, opts.Options).Arg(image).Arg(opts.Command...)
	return o.launch(ctx, "create container", image, cmd, opts.Sink)
}

// RunContainer creates and starts a detached container from image, optionally
// overriding its command.
func (o *Orchestrator) RunContainer(ctx context.Context, image string, opts RunOptions) (*Container, error) {
	cmd := o.containerCommand("run", opts.Name, opts.Options, "-d").Arg(image).Arg(opts.Command...)
	return o.launch(ctx, "run container", image, cmd, opts.Sink)
}

// StopContainer stops a container by id or name. Stopping a container that
// is not running succeeds, so StopContainer is idempotent; a missing
// container is still an error. The boolean is true whenever err is nil.
func (o *Orchestrator) StopContainer(ctx context.Context, idOrName string) (bool, error) {
	_, err := o.eng.exec.Execute(ctx, o.eng.command("stop").Arg(idOrName))
	switch {
	case err == nil:
		return true, nil
	case isNotRunningFailure(err):
		o.eng.settings.Logger.Debug("container already stopped", "container", idOrName)
		return true, nil
	default:
		return false, err
	}
}

// ReadLabel returns the value of label key on image. ok is false when the
// label is unset. With decode set the raw value is base64-decoded first.
func (o *Orchestrator) ReadLabel(ctx context.Context, image, key string, decode bool) (value string, ok bool, err error) {
	format := fmt.Sprintf("{{index .Config.Labels %q}}", key)
	out, err := o.eng.exec.Execute(ctx, o.eng.command("image").Arg("inspect").Option("format", format).Arg(image))
	if err != nil {
		return "", false, err
	}

	raw := strings.TrimSpace(out)
	if raw == "" || raw == noLabelValue {
		return "", false, nil
	}
	if !decode {
		return raw, true, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", false, fmt.Errorf("decode label %q of image %s: %w", key, image, err)
	}
	return string(decoded), true, nil
}

// ContainerIDsByImage lists every container (stopped ones included) whose
// image column contains the base name of image: its last "/" segment, tag
// included. The match is a substring test so that registry prefixes differing
// between creation and listing still match; it can over-match images whose
// names contain the base name. A reference with an empty base name is
// rejected with ErrInvalidImageReference rather than matching everything.
func (o *Orchestrator) ContainerIDsByImage(ctx context.Context, image string) ([]string, error) {
	base := image
	if i := strings.LastIndex(image, "/"); i >= 0 {
		base = image[i+1:]
	}
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("%w: %q has no image name", ErrInvalidImageReference, image)
	}

	out, err := o.eng.exec.Execute(ctx, o.eng.command("ps").Flag("-a").Option("format", "{{.ID}} {{.Image}}"))
	if err != nil {
		return nil, err
	}

	var ids []string
	for line := range strings.Lines(out) {
		id, img, found := strings.Cut(strings.TrimSpace(line), " ")
		if !found || id == "" {
			continue
		}
		if strings.Contains(img, base) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// WithContainer creates a container from image, runs body with it, and then
// cleans up on every exit path, panics included: a running container is
// stopped and a container that still exists is force-removed. Cleanup
// failures are logged, never returned; body's error is returned unchanged.
// Cleanup runs even when ctx has been cancelled.
func (o *Orchestrator) WithContainer(ctx context.Context, image string, opts CreateOptions, body func(ctx context.Context, c *Container) error) error {
	c, err := o.CreateContainer(ctx, image, opts)
	if err != nil {
		return err
	}
	defer o.cleanup(context.WithoutCancel(ctx), c)
	return body(ctx, c)
}

func (o *Orchestrator) cleanup(ctx context.Context, c *Container) {
	logger := o.eng.settings.Logger
	if status, err := c.Status(ctx); err == nil && status == StatusRunning {
		if err := c.Stop(ctx); err != nil {
			logger.Warn("failed to stop container during cleanup", "container", c.id, "error", err)
		}
	}
	if c.Exists(ctx) {
		if err := c.Remove(ctx, true); err != nil {
			logger.Warn("failed to remove container during cleanup", "container", c.id, "error", err)
		}
	}
}

// containerCommand builds "<sub> [flags] [--name n] [--key value]*" with
// options sorted by key.
func (o *Orchestrator) containerCommand(sub, name string, options map[string]any, flags ...string) Command {
	cmd := o.eng.command(sub)
	for _, f := range flags {
		cmd = cmd.Flag(f)
	}
	if name != "" {
		cmd = cmd.Option("name", name)
	}
	for _, k := range slices.Sorted(maps.Keys(options)) {
		cmd = cmd.Option(k, options[k])
	}
	return cmd
}

// launch executes a create/run command with transient-failure retry and
// wraps the printed id. The engine prints the id as the last stdout line,
// after any pull progress.
func (o *Orchestrator) launch(ctx context.Context, op, image string, cmd Command, sink LineSink) (*Container, error) {
	var id string
	err := retryTransient(ctx, o.eng.settings.Logger, op, func() error {
		out, err := o.capture(ctx, cmd, sink)
		if err != nil {
			return err
		}
		if id = lastNonEmptyLine(out); id == "" {
			return &EngineError{Op: cmd.Subcommand(), Err: errors.New("engine printed no container id")}
		}
		return nil
	})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation(op).
			WithResource(image).
			WithSuggestion(launchSuggestion(err, o.eng.settings.Engine)).
			Wrap(err).
			BuildError()
	}
	return &Container{id: id, eng: o.eng}, nil
}

// capture returns the command's stdout, streaming every line to sink when
// one is set.
func (o *Orchestrator) capture(ctx context.Context, cmd Command, sink LineSink) (string, error) {
	if sink == nil {
		return o.eng.exec.Execute(ctx, cmd)
	}
	var stdout strings.Builder
	err := o.eng.exec.ExecuteStreaming(ctx, cmd, func(line string, stream StreamTag) {
		if stream == StreamStdout {
			stdout.WriteString(line)
			stdout.WriteByte('\n')
		}
		sink(line, stream)
	})
	return stdout.String(), err
}

func launchSuggestion(err error, engine EngineType) string {
	switch {
	case IsNotFound(err):
		return fmt.Sprintf("Check the image name, or pull it first with '%s pull'", engine)
	case IsTransientError(err):
		return "The engine failed transiently on every attempt; check its health and retry"
	case errors.Is(err, ErrCommandFailed):
		return "Check the container options and that the container name is not already in use"
	default:
		return fmt.Sprintf("Check that %s is installed and accessible", engine)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
