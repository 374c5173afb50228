// Package runtime provides a unified interface for container engines.
//
// Supported engines:
//   - podman (preferred when both are installed)
//   - docker
//
// Engine selection is automatic unless bstest.toml names one. When neither
// engine is installed, New returns an Unavailable runtime so the
// orchestrator can report the missing dependency.
//
// # ContainerRuntime Interface
//
//   - CheckAvailable: engine installed, responsive, images present
//   - Spawn: start an auto-removing container under a fixed name, streams
//     redirected to caller-supplied writers
//   - Kill: idempotent teardown by name
//   - IsRunning: state query
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to create a mock implementation that can
// be configured with available images and injected errors, and used to
// verify spawn and kill calls.
package runtime
