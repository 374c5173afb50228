package errors

import (
	"errors"
	"fmt"
)

// Exit codes for bstest. Runner failures mirror the runner's own exit status,
// clamped into [ExitRunnerFailure, maxRunnerExitCode] so they never collide
// with the codes reserved for sessions that could not even attempt tests.
const (
	ExitSuccess           = 0
	ExitRunnerFailure     = 1
	ExitValidation        = 64
	ExitDependencyMissing = 69
	ExitSpawnFailed       = 70
	ExitInterrupted       = 130

	maxRunnerExitCode = 63
)

// Kind classifies a HarnessError.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindDependencyMissing Kind = "dependency-missing"
	KindSpawn             Kind = "spawn"
	KindRunner            Kind = "runner"
	KindGeneral           Kind = "general"
)

// HarnessError is the base error type for bstest
type HarnessError struct {
	Code    int
	Kind    Kind
	Message string
	Cause   error
}

func (e *HarnessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *HarnessError) ExitCode() int {
	return e.Code
}

// New creates a new HarnessError of the general kind
func New(code int, message string) *HarnessError {
	return &HarnessError{
		Code:    code,
		Kind:    KindGeneral,
		Message: message,
	}
}

// Wrap wraps an existing error with a HarnessError of the general kind
func Wrap(code int, message string, cause error) *HarnessError {
	return &HarnessError{
		Code:    code,
		Kind:    KindGeneral,
		Message: message,
		Cause:   cause,
	}
}

// ValidationFailed returns an error for bad arguments or an unreachable
// pre-specified target.
func ValidationFailed(message string) *HarnessError {
	return &HarnessError{Code: ExitValidation, Kind: KindValidation, Message: message}
}

// DependencyMissing returns an error for an absent container engine or image.
func DependencyMissing(message string) *HarnessError {
	return &HarnessError{Code: ExitDependencyMissing, Kind: KindDependencyMissing, Message: message}
}

// SpawnFailed returns an error for a simulated target that failed to start
// or never became ready.
func SpawnFailed(name string, cause error) *HarnessError {
	return &HarnessError{
		Code:    ExitSpawnFailed,
		Kind:    KindSpawn,
		Message: fmt.Sprintf("simulated target %s failed to start", name),
		Cause:   cause,
	}
}

// RunnerFailed returns an error for a test run that reported failures.
// The exit code mirrors the runner's status.
func RunnerFailed(runnerExitCode int, message string) *HarnessError {
	return &HarnessError{
		Code:    RunnerExitCode(runnerExitCode),
		Kind:    KindRunner,
		Message: message,
	}
}

// Interrupted returns an error for a session cancelled by a signal.
func Interrupted(cause error) *HarnessError {
	return &HarnessError{
		Code:    ExitInterrupted,
		Kind:    KindRunner,
		Message: "session interrupted",
		Cause:   cause,
	}
}

// RunnerExitCode maps a runner's exit status into the range reserved for
// runner failures.
func RunnerExitCode(code int) int {
	if code < ExitRunnerFailure || code > maxRunnerExitCode {
		return ExitRunnerFailure
	}
	return code
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var harnessErr *HarnessError
	if errors.As(err, &harnessErr) {
		return harnessErr.ExitCode()
	}
	return ExitRunnerFailure
}

// KindOf returns the Kind of the first HarnessError in err's chain.
func KindOf(err error) Kind {
	var harnessErr *HarnessError
	if errors.As(err, &harnessErr) {
		return harnessErr.Kind
	}
	return KindGeneral
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
