// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"strings"

	"github.com/google/uuid"
)

// UniqueName returns prefix joined with a short random suffix, suitable for
// container names that must not collide across parallel test runs.
func UniqueName(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if prefix == "" {
		return "shipyard-" + suffix
	}
	return prefix + "-" + suffix
}
