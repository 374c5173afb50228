// Package integration provides a test harness for integration tests
// that require a real container engine.
//
// Integration tests are skipped unless BSTEST_INTEGRATION_TESTS=1. They
// also need podman or docker and the simulator image (ioc/simdetector by
// default, overridden with BSTEST_SIM_IMAGE). BSTEST_ENGINE forces an
// engine.
//
// # Test Harness
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if not enabled
//
//	    name := h.UniqueName()
//	    handle, capture := h.Spawn(name)
//	    if err := h.WaitForRunning(name, 30*time.Second); err != nil {
//	        t.Fatal(err)
//	    }
//
//	    // Cleanup is automatic via t.Cleanup
//	}
//
// Run with: BSTEST_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
