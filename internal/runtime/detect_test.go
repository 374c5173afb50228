package runtime

import (
	"context"
	"os/exec"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

func lookPathIn(found ...string) func(string) (string, error) {
	set := make(map[string]bool)
	for _, f := range found {
		set[f] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		engine  EngineType
		found   []string
		want    EngineType
		wantErr bool
	}{
		{"auto prefers podman", EngineAuto, []string{"docker", "podman"}, EnginePodman, false},
		{"auto falls back to docker", EngineAuto, []string{"docker"}, EngineDocker, false},
		{"empty means auto", "", []string{"docker"}, EngineDocker, false},
		{"auto nothing found", EngineAuto, nil, "", true},
		{"explicit docker", EngineDocker, []string{"docker", "podman"}, EngineDocker, false},
		{"explicit docker missing", EngineDocker, []string{"podman"}, "", true},
		{"unknown engine", EngineType("lxc"), []string{"lxc"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.engine, lookPathIn(tt.found...))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Detect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_Unavailable(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.Paths = map[string]bool{}

	rt := New(EngineAuto, exec)
	if rt.Name() != "unavailable" {
		t.Fatalf("Name() = %q, want unavailable", rt.Name())
	}

	ok, msg := rt.CheckAvailable(context.Background(), "ioc/simdetector")
	if ok || msg == "" {
		t.Errorf("CheckAvailable() = %v, %q", ok, msg)
	}

	_, err := rt.Spawn(context.Background(), SpawnOptions{Name: "sim", Image: "ioc/simdetector"})
	if errors.KindOf(err) != errors.KindDependencyMissing {
		t.Errorf("Spawn() error kind = %v, want dependency-missing", errors.KindOf(err))
	}
	if err := rt.Kill(context.Background(), "sim"); err != nil {
		t.Errorf("Kill() error: %v", err)
	}
}

func TestNew_Docker(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.Paths = map[string]bool{"docker": true}

	rt := New(EngineAuto, exec)
	if rt.Name() != "docker" {
		t.Errorf("Name() = %q, want docker", rt.Name())
	}
}

func TestValidateContainerName(t *testing.T) {
	valid := []string{"bstest-sim-1a2b3c4d", "fixture_test", "a", "sim.1"}
	for _, name := range valid {
		if err := ValidateContainerName(name); err != nil {
			t.Errorf("ValidateContainerName(%q) unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", "-leading", "has space", "semi;colon", "slash/name"}
	for _, name := range invalid {
		if err := ValidateContainerName(name); err == nil {
			t.Errorf("ValidateContainerName(%q) expected error", name)
		}
	}
}
