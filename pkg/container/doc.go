// SPDX-License-Identifier: MPL-2.0

// Package container drives an external container engine CLI (Docker or Podman)
// as a subprocess and turns its polling-only state surface into synchronous,
// timeout-bounded lifecycle operations.
//
// The layers, leaves first:
//
//   - Command builds one engine argument vector (binary, subcommand, flags,
//     --key value options, positional arguments).
//   - Executor runs a Command, captures or streams its output, and classifies
//     failures into NotFoundError, CommandFailedError, or EngineError.
//   - Stats normalizes one raw stats sample into CPU percent and memory amount.
//   - Container is a reference to one engine container: start, stop, remove,
//     status, stats, and in-container file access, each querying the engine fresh.
//   - Orchestrator is the process-wide entry point: image checks, create/run,
//     label reads, discovery by image, WithContainer scoped cleanup, and
//     aggregated stats polling across many containers.
//
// Explain turns any of these errors into rendered troubleshooting guidance.
//
// All configuration (timeouts, logger, engine) is carried by an explicit
// Settings value passed to NewOrchestrator; there is no package-level state
// besides the default exec function.
package container
