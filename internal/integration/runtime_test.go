package integration

import (
	"context"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runtime"
)

func TestRuntime_SpawnKill(t *testing.T) {
	h := NewHarness(t)
	name := h.UniqueName()
	ctx := context.Background()

	handle, _ := h.Spawn(name)

	if err := h.WaitForRunning(name, 30*time.Second); err != nil {
		t.Fatalf("container never started: %v", err)
	}

	if err := h.Runtime().Kill(ctx, name); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("engine process did not exit after kill")
	}

	running, err := h.Runtime().IsRunning(ctx, name)
	if err != nil {
		t.Fatalf("IsRunning() error: %v", err)
	}
	if running {
		t.Error("container should not be running after kill")
	}

	// A second kill is a no-op.
	if err := h.Runtime().Kill(ctx, name); err != nil {
		t.Errorf("second Kill() error: %v", err)
	}
}

func TestRuntime_NameCollision(t *testing.T) {
	h := NewHarness(t)
	name := h.UniqueName()

	h.Spawn(name)
	if err := h.WaitForRunning(name, 30*time.Second); err != nil {
		t.Fatalf("container never started: %v", err)
	}

	_, err := h.Runtime().Spawn(context.Background(), runtime.SpawnOptions{Name: name, Image: h.Image()})
	if errors.KindOf(err) != errors.KindSpawn {
		t.Fatalf("expected spawn error on collision, got %v", err)
	}

	// The original container must survive the refused spawn.
	running, _ := h.Runtime().IsRunning(context.Background(), name)
	if !running {
		t.Error("existing container was affected by the refused spawn")
	}
}

func TestRuntime_MissingImage(t *testing.T) {
	h := NewHarness(t)

	_, err := h.Runtime().Spawn(context.Background(), runtime.SpawnOptions{
		Name:  h.UniqueName(),
		Image: "bstest/does-not-exist:never",
	})
	if errors.KindOf(err) != errors.KindSpawn {
		t.Fatalf("expected spawn error for a missing image, got %v", err)
	}
}

func TestRuntime_SameNameAfterKill(t *testing.T) {
	h := NewHarness(t)
	name := h.UniqueName()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		handle, _ := h.Spawn(name)
		if err := h.WaitForRunning(name, 30*time.Second); err != nil {
			t.Fatalf("round %d: container never started: %v", i+1, err)
		}
		if err := h.Runtime().Kill(ctx, name); err != nil {
			t.Fatalf("round %d: Kill() error: %v", i+1, err)
		}
		<-handle.Done()
	}
}

// The simulator keeps running with no stdin attached to the harness.
func TestRuntime_StaysUpWithoutStdin(t *testing.T) {
	h := NewHarness(t)
	name := h.UniqueName()

	handle, capture := h.Spawn(name)
	if err := h.WaitForRunning(name, 30*time.Second); err != nil {
		t.Fatalf("container never started: %v", err)
	}

	select {
	case <-handle.Done():
		t.Fatalf("container exited on its own; see %s", capture)
	case <-time.After(15 * time.Second):
	}
}
