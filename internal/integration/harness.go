package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/session"
)

// TestHarness provides utilities for integration testing with real containers.
type TestHarness struct {
	t       *testing.T
	tempDir string
	image   string
	rt      runtime.ContainerRuntime
	names   []string // Track spawned containers for cleanup
}

// NewHarness creates a new test harness.
// It will skip the test if BSTEST_INTEGRATION_TESTS is not set, or if no
// engine with the simulator image is available.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	if os.Getenv("BSTEST_INTEGRATION_TESTS") != "1" {
		t.Skip("integration tests disabled (set BSTEST_INTEGRATION_TESTS=1 to enable)")
	}

	engine := os.Getenv(session.EnvEngine)
	if engine == "" {
		engine = string(runtime.EngineAuto)
	}
	image := os.Getenv(session.EnvSimImage)
	if image == "" {
		image = config.DefaultImage
	}

	rt := runtime.New(runtime.EngineType(engine), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ok, msg := rt.CheckAvailable(ctx, image); !ok {
		t.Skipf("container engine not usable: %s", msg)
	}

	h := &TestHarness{
		t:       t,
		tempDir: t.TempDir(),
		image:   image,
		rt:      rt,
	}

	t.Cleanup(h.Cleanup)

	return h
}

// Runtime returns the container runtime.
func (h *TestHarness) Runtime() runtime.ContainerRuntime {
	return h.rt
}

// Image returns the simulator image under test.
func (h *TestHarness) Image() string {
	return h.image
}

// TempDir returns the harness's scratch directory.
func (h *TestHarness) TempDir() string {
	return h.tempDir
}

// UniqueName returns a container name no other test run will use.
func (h *TestHarness) UniqueName() string {
	return config.DefaultNamePrefix + "it-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Spawn starts the simulator under name, capturing output in the temp dir,
// and tracks it for cleanup.
func (h *TestHarness) Spawn(name string) (*runtime.Handle, string) {
	h.t.Helper()

	capture := filepath.Join(h.tempDir, name+".log")
	f, err := os.Create(capture)
	if err != nil {
		h.t.Fatalf("Failed to create capture file: %v", err)
	}
	h.t.Cleanup(func() { _ = f.Close() })

	handle, err := h.rt.Spawn(context.Background(), runtime.SpawnOptions{
		Name:    name,
		Image:   h.image,
		Workdir: config.DefaultWorkdir,
		Stdout:  f,
		Stderr:  f,
	})
	if err != nil {
		h.t.Fatalf("Spawn(%s) failed: %v", name, err)
	}
	h.TrackContainer(name)
	return handle, capture
}

// WaitForRunning waits until the engine reports name as running.
func (h *TestHarness) WaitForRunning(name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	running := probeFunc(func(ctx context.Context, id string, _ time.Duration) bool {
		ok, _ := h.rt.IsRunning(ctx, id)
		return ok
	})
	if err := probe.WaitReady(ctx, running, name, timeout, 500*time.Millisecond); err != nil {
		return fmt.Errorf("container %s: %w", name, err)
	}
	return nil
}

// TrackContainer tracks a container for cleanup.
func (h *TestHarness) TrackContainer(name string) {
	h.names = append(h.names, name)
}

// Cleanup kills all tracked containers.
func (h *TestHarness) Cleanup() {
	ctx := context.Background()

	for _, name := range h.names {
		if err := h.rt.Kill(ctx, name); err != nil {
			h.t.Logf("Warning: failed to kill container %s: %v", name, err)
		}
	}
}

type probeFunc func(ctx context.Context, id string, timeout time.Duration) bool

func (f probeFunc) IsReady(ctx context.Context, id string, timeout time.Duration) bool {
	return f(ctx, id, timeout)
}
