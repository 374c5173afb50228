// Package app provides the application context for bstest.
//
// This package manages the session's dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
// There is no package-level default instance: the command builds one App
// per process and passes it to the orchestrator.
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a := app.New(app.WithHarness(cfg))
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithRuntime(runtime.NewMockRuntime("ioc/simdetector")),
//	    app.WithRunner(runner.NewMockRunner()),
//	    app.WithProbe(stubProbe),
//	    app.WithFS(system.NewMockFS()),
//	)
//
// # Available Options
//
//	WithHarness(cfg)     // Harness configuration (bstest.toml)
//	WithRuntime(rt)      // Container runtime
//	WithProbe(p)         // Readiness probe
//	WithRunner(r)        // Test runner
//	WithFS(fs)           // File system
//	WithExecutor(exec)   // Command executor for the default runtime and runner
package app
