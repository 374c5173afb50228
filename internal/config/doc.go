// Package config provides configuration types and loading for bstest.
//
// # Harness Configuration
//
// HarnessConfig is read from bstest.toml (or the file named by -c) and
// overlaid on DefaultHarnessConfig. It names the harness resource root,
// the runner command, the simulated target image and ports, the probe
// timeout, and a [targets] table mapping prefixes to host:port addresses:
//
//	root = "."
//
//	[runner]
//	command = "go test -count=1 -p 1 ./suite/..."
//
//	[simulator]
//	engine = "auto"
//	image = "ioc/simdetector"
//	ready_timeout = "10s"
//
//	[targets]
//	"XF17BM-BI{Sim-Cam:1}" = "10.0.0.5:5064"
//
// # Session Configuration
//
// SessionConfig is produced by Validate from the command-line arguments.
// Validation is fail-fast:
//
//  1. A supplied target prefix must answer a readiness probe.
//  2. A supplied output path must be writable, or creatable in a
//     writable parent directory.
//
// A SessionConfig cannot be modified after construction.
package config
