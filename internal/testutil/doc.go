// Package testutil provides test fixtures and utilities.
//
// # Fixtures
//
// TOML harness configurations are embedded using go:embed:
//
//	fixtures/valid_harness.toml
//	fixtures/invalid_harness.toml
//
// They decode over config.DefaultHarnessConfig without validation:
//
//	cfg, err := testutil.ValidHarnessConfig()
//	cfg, err := testutil.InvalidHarnessConfig()
//	data, err := testutil.LoadFixture("valid_harness.toml")
//
// # Test Environment
//
// NewTestEnv writes the valid fixture to a temporary bstest.toml and sets
// up mocks for the container runtime, the runner and the readiness probe:
//
//	env := testutil.NewTestEnv(t)
//	env.Probe.Ready = false
//	a := env.App()
package testutil
