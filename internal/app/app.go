// Package app provides the application context for bstest.
// It allows dependency injection for testing.
package app

import (
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runner"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

// App holds the application dependencies
type App struct {
	// Harness is the loaded harness configuration
	Harness *config.HarnessConfig

	// Runtime is the container runtime for simulated targets
	Runtime runtime.ContainerRuntime

	// Probe checks target reachability
	Probe probe.Probe

	// Runner executes the test suite
	Runner runner.Runner

	// FS is used for output path checks and capture files
	FS system.FileSystem

	// Exec runs external commands for the default runtime and runner
	Exec system.CommandExecutor
}

// Option is a function that configures the App
type Option func(*App)

// WithHarness sets the harness configuration
func WithHarness(cfg *config.HarnessConfig) Option {
	return func(a *App) {
		a.Harness = cfg
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.ContainerRuntime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithProbe sets a custom readiness probe
func WithProbe(p probe.Probe) Option {
	return func(a *App) {
		a.Probe = p
	}
}

// WithRunner sets a custom test runner
func WithRunner(r runner.Runner) Option {
	return func(a *App) {
		a.Runner = r
	}
}

// WithFS sets a custom file system
func WithFS(fs system.FileSystem) Option {
	return func(a *App) {
		a.FS = fs
	}
}

// WithExecutor sets a custom command executor
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.Exec = exec
	}
}

// New creates a new App with the given options.
// Dependencies not provided are built from the harness configuration.
func New(opts ...Option) *App {
	app := &App{}

	for _, opt := range opts {
		opt(app)
	}

	if app.Harness == nil {
		app.Harness = config.DefaultHarnessConfig()
	}
	if app.FS == nil {
		app.FS = system.DefaultFS()
	}
	if app.Exec == nil {
		app.Exec = system.DefaultExecutor()
	}
	if app.Runtime == nil {
		app.Runtime = runtime.New(runtime.EngineType(app.Harness.Simulator.Engine), app.Exec)
		logging.Debug("initialized runtime", "runtime", app.Runtime.Name())
	}
	if app.Probe == nil {
		app.Probe = probe.NewTCPProbe(app.Resolver())
	}
	if app.Runner == nil {
		app.Runner = runner.NewCommandRunner(app.Harness.Runner.Command, app.Exec)
	}

	return app
}

// Resolver returns the target address resolver for the harness configuration.
func (a *App) Resolver() probe.Resolver {
	return probe.Resolver{
		Targets:        a.Harness.Targets,
		DefaultAddress: a.Harness.Probe.DefaultAddress,
	}
}
