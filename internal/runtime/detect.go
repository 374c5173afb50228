package runtime

import (
	"fmt"
	"regexp"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

// EngineType identifies which container engine to use
type EngineType string

const (
	EngineDocker EngineType = "docker"
	EnginePodman EngineType = "podman"
	EngineAuto   EngineType = "auto"
)

// containerNameRegex matches names accepted by both docker and podman.
var containerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,127}$`)

// ValidateContainerName checks if a container name is valid.
func ValidateContainerName(name string) error {
	if name == "" {
		return fmt.Errorf("container name cannot be empty")
	}
	if !containerNameRegex.MatchString(name) {
		return fmt.Errorf("invalid container name %q: must start with a letter or digit and contain only letters, digits, '_', '.' or '-'", name)
	}
	return nil
}

// Detect determines which container engine is available.
// Auto prefers podman (rootless) and falls back to docker.
func Detect(engine EngineType, lookPath func(string) (string, error)) (EngineType, error) {
	switch engine {
	case EngineDocker, EnginePodman:
		if _, err := lookPath(string(engine)); err != nil {
			return "", fmt.Errorf("%s not found in PATH", engine)
		}
		return engine, nil
	case EngineAuto, "":
		for _, candidate := range []EngineType{EnginePodman, EngineDocker} {
			if _, err := lookPath(string(candidate)); err == nil {
				logging.Debug("detected container engine", "engine", candidate)
				return candidate, nil
			}
		}
		return "", fmt.Errorf("neither podman nor docker found in PATH")
	default:
		return "", fmt.Errorf("unknown container engine: %s", engine)
	}
}

// New creates a ContainerRuntime for engine. When no engine can be found
// it returns an Unavailable runtime carrying the reason, so callers can
// report the missing dependency instead of failing at construction.
func New(engine EngineType, exec system.CommandExecutor) ContainerRuntime {
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	detected, err := Detect(engine, exec.LookPath)
	if err != nil {
		logging.Debug("no container engine", "error", err)
		return &Unavailable{Reason: fmt.Sprintf("container engine unavailable: %v", err)}
	}

	logging.Debug("creating runtime", "engine", detected)
	return &DockerRuntime{Command: string(detected), Exec: exec}
}
