// Package session runs a single bstest session.
//
// An Orchestrator moves through a fixed lifecycle:
//
//	init -> validated -> target-resolved -> running -> cleanup -> terminal
//
// Validation failures go straight to terminal. Every other path, including
// a panic in the runner and cancellation by a signal, passes through
// cleanup exactly once: the session's simulated target is killed by name,
// an unused capture directory is removed, and a file sink is closed.
//
// The session Context replaces process-wide state. It is exported to the
// test runner through BSTEST_* environment variables and rebuilt there by
// FromEnviron.
package session
