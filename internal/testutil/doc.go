// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by shipyard tests: gating tests on
// a real container engine, bounding concurrent container work, unique
// resource names, and fail-fast file helpers.
package testutil
