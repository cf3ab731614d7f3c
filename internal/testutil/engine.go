// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/invowk/shipyard/pkg/container"
)

// engineCheckTimeout bounds the version queries used to detect an engine.
const engineCheckTimeout = 10 * time.Second

// RequireEngine skips the test in -short mode or when no usable container
// engine is present, and otherwise returns the detected engine.
func RequireEngine(t testing.TB) container.EngineType {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), engineCheckTimeout)
	defer cancel()
	engine, err := container.AutoDetectEngine(ctx)
	if err != nil {
		t.Skipf("skipping container integration test: %v", err)
	}

	// testcontainers reads DOCKER_HOST and the podman socket itself; a second
	// opinion catches engines whose CLI answers but whose daemon does not.
	if !providerAvailable() {
		t.Skip("skipping container integration test: testcontainers provider not available")
	}
	return engine
}

// providerAvailable reports whether testcontainers can reach an engine. The
// provider lookup can panic on broken configurations.
func providerAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}
