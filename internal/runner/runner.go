// Package runner invokes the test-execution engine for a session.
package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

// Options configures a single run.
type Options struct {
	Dir            string    // Working directory for the runner
	Verbose        bool      // Report each test, not just failures
	IgnoreWarnings bool      // Skip static warnings (vet)
	Env            []string  // Added to the runner's environment
	Stdout         io.Writer // Runner standard output
	Stderr         io.Writer // Runner standard error
}

// Result is the outcome of a completed run.
type Result struct {
	Passed   bool
	ExitCode int
}

// Runner executes the test suite.
type Runner interface {
	Run(ctx context.Context, opts Options) (Result, error)
}

// CommandRunner runs an external command line, by default `go test`.
type CommandRunner struct {
	// Command is the shell-quoted command line
	Command string

	// Exec starts the process
	Exec system.CommandExecutor
}

// NewCommandRunner creates a CommandRunner for command.
func NewCommandRunner(command string, exec system.CommandExecutor) *CommandRunner {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &CommandRunner{Command: command, Exec: exec}
}

// Args returns the full argument list for opts, command name first.
// Flags are placed right after `go test`; other runners get them appended.
func (r *CommandRunner) Args(opts Options) ([]string, error) {
	args, err := shellquote.Split(r.Command)
	if err != nil {
		return nil, fmt.Errorf("invalid runner command %q: %w", r.Command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("runner command is empty")
	}

	var flags []string
	if opts.Verbose {
		flags = append(flags, "-v")
	}
	if opts.IgnoreWarnings {
		flags = append(flags, "-vet=off")
	}

	if len(args) >= 2 && args[0] == "go" && args[1] == "test" {
		out := make([]string, 0, len(args)+len(flags))
		out = append(out, args[:2]...)
		out = append(out, flags...)
		return append(out, args[2:]...), nil
	}
	return append(args, flags...), nil
}

// Run starts the runner and waits for it. A failing suite is reported in
// the Result, not as an error; errors mean the runner could not be run.
func (r *CommandRunner) Run(ctx context.Context, opts Options) (Result, error) {
	args, err := r.Args(opts)
	if err != nil {
		return Result{}, errors.Wrap(errors.ExitValidation, "invalid runner configuration", err)
	}

	if _, err := r.Exec.LookPath(args[0]); err != nil {
		return Result{}, errors.DependencyMissing(fmt.Sprintf("test runner %s not found in PATH", args[0]))
	}

	logging.Debug("starting runner", "command", shellquote.Join(args...), "dir", opts.Dir)

	proc, err := r.Exec.Start(ctx, system.StartOptions{
		Dir:    opts.Dir,
		Env:    opts.Env,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	}, args[0], args[1:]...)
	if err != nil {
		return Result{}, errors.Wrap(errors.ExitRunnerFailure, "failed to start test runner", err)
	}

	waitErr := proc.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, errors.Interrupted(ctxErr)
	}
	if waitErr == nil {
		return Result{Passed: true}, nil
	}

	var exitErr interface{ ExitCode() int }
	if stderrors.As(waitErr, &exitErr) && exitErr.ExitCode() > 0 {
		logging.Debug("runner failed", "exit_code", exitErr.ExitCode())
		return Result{Passed: false, ExitCode: exitErr.ExitCode()}, nil
	}
	return Result{}, errors.Wrap(errors.ExitRunnerFailure, "test runner terminated abnormally", waitErr)
}

var _ Runner = (*CommandRunner)(nil)
