// SPDX-License-Identifier: MPL-2.0

// Package issue attaches actionable context (operation, resource, remediation
// hints) to errors without hiding the typed error underneath.
package issue
