// Package errors provides typed errors with exit codes for bstest.
//
// # Error Types
//
// HarnessError is the base error type that wraps an error with an exit code
// and a kind:
//
//	type HarnessError struct {
//	    Code    int    // Exit code
//	    Kind    Kind   // validation, dependency-missing, spawn, runner
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// The exit code always distinguishes "could not even attempt tests" from
// "attempted tests, some failed":
//
//	ExitSuccess           = 0   // All tests passed
//	ExitRunnerFailure     = 1   // Runner failures, 1..63 mirror the runner
//	ExitValidation        = 64  // Bad arguments or unreachable target
//	ExitDependencyMissing = 69  // Container engine or image absent
//	ExitSpawnFailed       = 70  // Simulated target failed to start
//	ExitInterrupted       = 130 // Session cancelled by a signal
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
