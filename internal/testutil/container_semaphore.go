// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"testing"
)

// ContainerSemaphore returns a process-wide buffered channel that limits concurrent
// container operations in tests. Acquire a slot by sending, release by receiving:
//
//	sem := testutil.ContainerSemaphore()
//	sem <- struct{}{}
//	defer func() { <-sem }()
//
// The capacity is SHIPYARD_TEST_CONTAINER_PARALLEL (if set to a positive
// integer) or min(GOMAXPROCS, 2); rootless Podman on small CI runners hangs
// rather than failing when too many containers start at once.
var ContainerSemaphore = sync.OnceValue(func() chan struct{} {
	return make(chan struct{}, containerParallelism())
})

func containerParallelism() int {
	if v := os.Getenv("SHIPYARD_TEST_CONTAINER_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return min(runtime.GOMAXPROCS(0), 2)
}

// AcquireContainerSlot blocks until a container slot is free and releases it
// when the test finishes.
func AcquireContainerSlot(t testing.TB) {
	sem := ContainerSemaphore()
	sem <- struct{}{}
	t.Cleanup(func() { <-sem })
}
