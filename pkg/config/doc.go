// SPDX-License-Identifier: MPL-2.0

// Package config loads shipyard's settings from defaults, an optional CUE
// file and SHIPYARD_* environment variables, and turns them into the
// container.Settings an Orchestrator is built from.
package config
