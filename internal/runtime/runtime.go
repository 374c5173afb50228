// Package runtime defines the container runtime interface for bstest.
// This abstraction allows for multiple engines (docker, podman) and enables
// testing the orchestrator and fixtures through mocking.
package runtime

import (
	"context"
	"io"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

// SpawnOptions holds options for starting a simulated target container.
type SpawnOptions struct {
	Name      string    // Container name, unique per session
	Image     string    // Image to run
	Workdir   string    // Working directory inside the container
	Publish   []string  // Port publications, passed to -p verbatim
	Stdout    io.Writer // Receives the container's standard output
	Stderr    io.Writer // Receives the container's standard error
	ExtraArgs []string  // Engine-specific arguments placed before the image
}

// ContainerRuntime is the interface that container engines must implement.
// All methods should be safe for concurrent use.
type ContainerRuntime interface {
	// Name returns the engine identifier (e.g., "docker", "podman")
	Name() string

	// CheckAvailable verifies the engine is installed and responsive and
	// that every image is present. The message is suitable for users.
	CheckAvailable(ctx context.Context, images ...string) (bool, string)

	// Spawn starts an auto-removing container bound to opts.Name. It fails
	// with a spawn error if the name is already in use or the image is missing.
	Spawn(ctx context.Context, opts SpawnOptions) (*Handle, error)

	// Kill terminates the named container and returns once the name can be
	// reused. A container that does not exist or is not running is not an error.
	Kill(ctx context.Context, name string) error

	// IsRunning checks if a container is currently running
	IsRunning(ctx context.Context, name string) (bool, error)
}

// Handle tracks a spawned container through the engine process streaming
// its output. Done is closed when that stream ends, i.e. when the
// container has stopped.
type Handle struct {
	Name  string
	Image string

	process system.Process
	done    chan struct{}
	once    sync.Once
	err     error
}

func newHandle(name, image string, process system.Process) *Handle {
	h := &Handle{
		Name:    name,
		Image:   image,
		process: process,
		done:    make(chan struct{}),
	}
	go h.wait()
	return h
}

func (h *Handle) wait() {
	var err error
	if h.process != nil {
		err = h.process.Wait()
	}
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done is closed when the engine process exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the engine process exits and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Pid returns the engine process id, or 0 if unknown.
func (h *Handle) Pid() int {
	if h.process == nil {
		return 0
	}
	return h.process.Pid()
}

// Unavailable is the runtime used when no container engine could be found.
// It reports the reason from CheckAvailable and refuses to spawn.
type Unavailable struct {
	Reason string
}

func (u *Unavailable) Name() string { return "unavailable" }

func (u *Unavailable) CheckAvailable(ctx context.Context, images ...string) (bool, string) {
	return false, u.Reason
}

func (u *Unavailable) Spawn(ctx context.Context, opts SpawnOptions) (*Handle, error) {
	return nil, errors.DependencyMissing(u.Reason)
}

// Kill is a no-op: nothing can have been spawned.
func (u *Unavailable) Kill(ctx context.Context, name string) error { return nil }

func (u *Unavailable) IsRunning(ctx context.Context, name string) (bool, error) { return false, nil }

var _ ContainerRuntime = (*Unavailable)(nil)
