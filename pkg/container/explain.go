// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"strings"

	"github.com/invowk/shipyard/internal/issue"
)

// Explain renders troubleshooting guidance for err with the given glamour
// style ("dark", "light", "notty"). It understands this package's errors and
// configuration load failures, and returns "" for anything else.
func Explain(err error, style string) (string, error) {
	id, ok := issueFor(err)
	if !ok {
		return "", nil
	}
	return issue.Get(id).Render(style)
}

// issueFor maps an error to its catalog entry. Engine stderr is checked for
// host problems first since those surface under any typed error.
func issueFor(err error) (issue.Id, bool) {
	if err == nil {
		return 0, false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "ping_group_range"):
		return issue.RootlessPodmanId, true
	case strings.Contains(msg, "permission denied") && strings.Contains(msg, ".sock"):
		return issue.EnginePermissionDeniedId, true
	}

	var (
		notFound   *NotFoundError
		actionable *issue.ActionableError
	)
	switch {
	case errors.Is(err, ErrNoEngineAvailable):
		return issue.EngineNotAvailableId, true
	case errors.As(err, &notFound):
		if containsAny(notFound.Stderr, []string{"no such image", "image not known"}) {
			return issue.ImageNotFoundId, true
		}
		return issue.ContainerNotFoundId, true
	case errors.Is(err, ErrTimeout):
		return issue.WaitTimeoutId, true
	case errors.As(err, &actionable) && strings.Contains(actionable.Operation, "configuration"):
		return issue.ConfigLoadFailedId, true
	}
	return 0, false
}
