// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE helpers shared by configuration loading:
// path-prefixed error formatting and input size limits.
package cueutil
