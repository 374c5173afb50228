package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

// removalPollInterval is the pause between checks that a killed
// container's name has been released.
const removalPollInterval = 100 * time.Millisecond

// killTimeout bounds the kill issued when a spawn is rolled back.
const killTimeout = 30 * time.Second

// DockerRuntime implements ContainerRuntime using the Docker or Podman CLI.
type DockerRuntime struct {
	// Command is the container command to use (docker or podman)
	Command string

	// Exec runs the engine CLI
	Exec system.CommandExecutor
}

// Name returns the engine identifier
func (r *DockerRuntime) Name() string {
	return r.Command
}

// runCmd executes a docker/podman command
func (r *DockerRuntime) runCmd(ctx context.Context, args ...string) (string, error) {
	output, err := r.Exec.Execute(ctx, r.Command, args...)
	if err != nil {
		return string(output), fmt.Errorf("%s %s failed: %s: %w", r.Command, args[0], strings.TrimSpace(string(output)), err)
	}
	return string(output), nil
}

// CheckAvailable verifies the engine and images are usable
func (r *DockerRuntime) CheckAvailable(ctx context.Context, images ...string) (bool, string) {
	if _, err := r.Exec.LookPath(r.Command); err != nil {
		return false, fmt.Sprintf("%s is not installed", r.Command)
	}

	if _, err := r.runCmd(ctx, "version"); err != nil {
		return false, fmt.Sprintf("%s is installed but not responding: %v", r.Command, err)
	}

	for _, image := range images {
		if !r.imagePresent(ctx, image) {
			return false, fmt.Sprintf("%s image %s not found; build or pull it before running simulated tests", r.Command, image)
		}
	}

	if len(images) == 0 {
		return true, fmt.Sprintf("%s is available", r.Command)
	}
	return true, fmt.Sprintf("%s is available with image %s", r.Command, strings.Join(images, ", "))
}

func (r *DockerRuntime) imagePresent(ctx context.Context, image string) bool {
	_, err := r.runCmd(ctx, "image", "inspect", image)
	return err == nil
}

// exists reports whether any container, running or not, holds name
func (r *DockerRuntime) exists(ctx context.Context, name string) bool {
	_, err := r.runCmd(ctx, "inspect", "--type", "container", name)
	return err == nil
}

// Spawn starts a simulated target container in the background
func (r *DockerRuntime) Spawn(ctx context.Context, opts SpawnOptions) (*Handle, error) {
	if err := ValidateContainerName(opts.Name); err != nil {
		return nil, errors.SpawnFailed(opts.Name, err)
	}
	if r.exists(ctx, opts.Name) {
		return nil, errors.SpawnFailed(opts.Name, fmt.Errorf("container name %s is already in use", opts.Name))
	}
	if !r.imagePresent(ctx, opts.Image) {
		return nil, errors.SpawnFailed(opts.Name, fmt.Errorf("image %s not found", opts.Image))
	}

	// Detached with a tty and open stdin, as the IOC shell exits on EOF.
	args := []string{"run", "-d", "-i", "-t", "--rm", "--name", opts.Name}
	if opts.Workdir != "" {
		args = append(args, "-w", opts.Workdir)
	}
	for _, p := range opts.Publish {
		args = append(args, "-p", p)
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, opts.Image)

	logging.Debug("spawning container", "name", opts.Name, "image", opts.Image, "runtime", r.Command)

	if _, err := r.runCmd(ctx, args...); err != nil {
		return nil, errors.SpawnFailed(opts.Name, err)
	}

	// The handle follows the container's output; it ends when the container does.
	proc, err := r.Exec.Start(ctx, system.StartOptions{Stdout: opts.Stdout, Stderr: opts.Stderr}, r.Command, "logs", "-f", opts.Name)
	if err != nil {
		killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), killTimeout)
		defer cancel()
		if killErr := r.Kill(killCtx, opts.Name); killErr != nil {
			logging.Warn("failed to kill container after log stream error", "container", opts.Name, "error", killErr)
		}
		return nil, errors.SpawnFailed(opts.Name, err)
	}

	return newHandle(opts.Name, opts.Image, proc), nil
}

// Kill terminates a container and waits until the engine has released its
// name. Missing or stopped containers are ignored.
func (r *DockerRuntime) Kill(ctx context.Context, name string) error {
	logging.Debug("killing container", "container", name)

	output, err := r.runCmd(ctx, "kill", name)
	if err != nil && !isGone(output) {
		return err
	}
	return r.waitRemoved(ctx, name)
}

// waitRemoved polls until no container holds name.
func (r *DockerRuntime) waitRemoved(ctx context.Context, name string) error {
	ticker := time.NewTicker(removalPollInterval)
	defer ticker.Stop()

	for {
		if !r.exists(ctx, name) {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("container %s still present after kill: %w", name, err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("container %s still present after kill: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// isGone matches docker and podman messages for containers that are
// already gone or stopped.
func isGone(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range []string{"no such container", "no container with name", "is not running"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsRunning checks if a container is currently running
func (r *DockerRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	output, err := r.runCmd(ctx, "inspect", "-f", "{{.State.Running}}", name)
	if err != nil {
		return false, nil // Container doesn't exist
	}

	return strings.TrimSpace(output) == "true", nil
}

var _ ContainerRuntime = (*DockerRuntime)(nil)
