// Package testutil provides test utilities for command tests
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runner"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

// StubProbe is a Probe with a fixed answer.
type StubProbe struct {
	mu    sync.Mutex
	Ready bool
	Calls []string
}

func (p *StubProbe) IsReady(ctx context.Context, id string, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, id)
	return p.Ready
}

// TestEnv holds the test environment
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	ConfigPath string
	Harness    *config.HarnessConfig
	Runtime    *runtime.MockRuntime
	Runner     *runner.MockRunner
	Probe      *StubProbe
}

// NewTestEnv creates a test environment with a harness config file and an
// empty suite directory in a temporary directory, a mock runtime holding the simulator image, a
// passing mock runner, and a probe that reports every target ready.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	data, err := LoadFixture("valid_harness.toml")
	if err != nil {
		t.Fatalf("Failed to load harness fixture: %v", err)
	}
	configPath := filepath.Join(tmpDir, config.DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write harness config: %v", err)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, config.DefaultSuiteDir), 0755); err != nil {
		t.Fatalf("Failed to create suite directory: %v", err)
	}

	harness, err := config.LoadHarnessConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load harness config: %v", err)
	}

	return &TestEnv{
		T:          t,
		TmpDir:     tmpDir,
		ConfigPath: configPath,
		Harness:    harness,
		Runtime:    runtime.NewMockRuntime(harness.Simulator.Image),
		Runner:     runner.NewMockRunner(),
		Probe:      &StubProbe{Ready: true},
	}
}

// AppOptions returns options wiring the environment's mocks into an App.
// The real file system is used so output files land in TmpDir.
func (e *TestEnv) AppOptions() []app.Option {
	return []app.Option{
		app.WithRuntime(e.Runtime),
		app.WithRunner(e.Runner),
		app.WithProbe(e.Probe),
		app.WithFS(system.DefaultFS()),
		app.WithExecutor(system.NewMockExecutor()),
	}
}

// App builds an App from the environment.
func (e *TestEnv) App() *app.App {
	return app.New(append([]app.Option{app.WithHarness(e.Harness)}, e.AppOptions()...)...)
}
