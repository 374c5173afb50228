package session

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/output"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runner"
)

// State is a step of the session lifecycle.
type State string

const (
	StateInit           State = "init"
	StateValidated      State = "validated"
	StateTargetResolved State = "target-resolved"
	StateRunning        State = "running"
	StateCleanup        State = "cleanup"
	StateTerminal       State = "terminal"
)

// OutcomeKind classifies how a session ended.
type OutcomeKind string

const (
	OutcomeSuccess           OutcomeKind = "success"
	OutcomeValidationFailure OutcomeKind = "validation-failure"
	OutcomeDependencyMissing OutcomeKind = "dependency-missing"
	OutcomeRunnerFailure     OutcomeKind = "runner-failure"
)

// Outcome is the result of a session.
type Outcome struct {
	Kind     OutcomeKind
	Message  string
	ExitCode int

	err error
}

// Err returns nil for a successful session and the terminal error otherwise.
func (o Outcome) Err() error {
	if o.Kind == OutcomeSuccess {
		return nil
	}
	if o.err != nil {
		return o.err
	}
	return errors.New(o.ExitCode, o.Message)
}

func outcomeFromError(err error) Outcome {
	kind := OutcomeRunnerFailure
	switch errors.KindOf(err) {
	case errors.KindValidation:
		kind = OutcomeValidationFailure
	case errors.KindDependencyMissing:
		kind = OutcomeDependencyMissing
	}
	return Outcome{Kind: kind, Message: err.Error(), ExitCode: errors.GetExitCode(err), err: err}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVersion sets the version shown in the banner.
func WithVersion(version string) Option {
	return func(o *Orchestrator) { o.version = version }
}

// WithConsole sets the console writer used when no output file is given.
func WithConsole(w io.Writer) Option {
	return func(o *Orchestrator) { o.console = w }
}

// WithEnvironment overrides the environment line of the banner.
func WithEnvironment(env string) Option {
	return func(o *Orchestrator) { o.environment = env }
}

// WithSinkHook registers a function called once the output sink is open,
// before anything is written to it.
func WithSinkHook(fn func(*output.Sink)) Option {
	return func(o *Orchestrator) { o.sinkHook = fn }
}

// Orchestrator drives a single test session from validation to cleanup.
type Orchestrator struct {
	app  *app.App
	raw  config.RawArgs
	cfg  *config.SessionConfig
	sctx *Context
	sink *output.Sink

	version     string
	environment string
	console     io.Writer
	sinkHook    func(*output.Sink)

	mu                sync.Mutex
	state             State
	transitions       []State
	cleanupOnce       sync.Once
	captureDirCreated bool
}

// New creates an orchestrator for raw session arguments.
func New(a *app.App, raw config.RawArgs, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		app:         a,
		raw:         raw,
		version:     "dev",
		environment: Environment(),
		state:       StateInit,
		transitions: []State{StateInit},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) transition(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	logging.Debug("session state", "from", o.state, "to", s)
	o.state = s
	o.transitions = append(o.transitions, s)
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Transitions returns every state entered so far, in order.
func (o *Orchestrator) Transitions() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]State, len(o.transitions))
	copy(out, o.transitions)
	return out
}

// Context returns the session context, or nil before validation succeeds.
func (o *Orchestrator) Context() *Context {
	return o.sctx
}

// Run executes the session. Cleanup has completed by the time it returns,
// whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context) (outcome Outcome) {
	cfg, err := config.Validate(ctx, o.raw, o.app.Probe, o.app.FS, o.app.Harness.Probe.Timeout.Duration)
	if err != nil {
		return o.fail(err)
	}
	o.cfg = cfg
	o.transition(StateValidated)

	if err := o.openSink(); err != nil {
		return o.fail(err)
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("session panicked", "panic", r)
			outcome = outcomeFromError(errors.RunnerFailed(errors.ExitRunnerFailure, fmt.Sprintf("test run aborted: %v", r)))
		}
		o.cleanup(ctx, &outcome)
		o.transition(StateTerminal)
	}()

	o.sink.Banner(BannerText(o.version, o.environment))

	o.sctx = NewContext(cfg, o.app.Harness, o.app.Runtime.Name(), o.app.Resolver())
	logging.Debug("session context", "id", o.sctx.ID, "mode", o.sctx.Mode, "sim_name", o.sctx.SimName)

	if err := o.resolveTarget(ctx); err != nil {
		return outcomeFromError(err)
	}
	o.transition(StateTargetResolved)

	if err := ctx.Err(); err != nil {
		return outcomeFromError(errors.Interrupted(err))
	}

	o.transition(StateRunning)
	result, err := o.app.Runner.Run(ctx, runner.Options{
		Dir:            o.app.Harness.Root,
		Verbose:        cfg.Verbose(),
		IgnoreWarnings: cfg.SuppressWarnings(),
		Env:            o.sctx.ToEnv(),
		Stdout:         o.sink,
		Stderr:         o.sink,
	})
	if err != nil {
		return outcomeFromError(err)
	}
	if !result.Passed {
		return outcomeFromError(errors.RunnerFailed(result.ExitCode, fmt.Sprintf("test run failed with exit status %d", result.ExitCode)))
	}
	return Outcome{Kind: OutcomeSuccess, Message: "all tests passed", ExitCode: errors.ExitSuccess}
}

// fail ends a session that never reached cleanup.
func (o *Orchestrator) fail(err error) Outcome {
	if o.sink == nil {
		o.sink = output.Console(o.console)
	}
	outcome := outcomeFromError(err)
	o.report(outcome)
	o.transition(StateTerminal)
	return outcome
}

func (o *Orchestrator) openSink() error {
	if o.cfg.HasOutput() {
		sink, err := output.Open(o.cfg.OutputPath())
		if err != nil {
			return errors.ValidationFailed(fmt.Sprintf("output path %s cannot be opened: %v", o.cfg.OutputPath(), err))
		}
		o.sink = sink
	} else {
		o.sink = output.Console(o.console)
	}
	if o.sinkHook != nil {
		o.sinkHook(o.sink)
	}
	return nil
}

func (o *Orchestrator) resolveTarget(ctx context.Context) error {
	// A missing suite means no test can be attempted, which is not a test failure.
	if suite := o.app.Harness.SuitePath(); suite != "" && !o.app.FS.IsDir(suite) {
		return errors.DependencyMissing(fmt.Sprintf("test suite not found at %s; run bstest from the harness root or set root in %s", suite, config.DefaultConfigFile))
	}

	if o.sctx.External() {
		o.sink.Printf("Running tests against target with prefix %s...", o.sctx.Prefix)
		return nil
	}

	o.sink.Printf("Running tests against auto-generated simulated detector targets...")

	ok, msg := o.app.Runtime.CheckAvailable(ctx, o.sctx.Image)
	if !ok {
		return errors.DependencyMissing(msg)
	}
	o.sink.Info("%s", msg)

	if o.sctx.CaptureDir != "" && !o.app.FS.Exists(o.sctx.CaptureDir) {
		if err := o.app.FS.MkdirAll(o.sctx.CaptureDir, 0o755); err != nil {
			return errors.DependencyMissing(fmt.Sprintf("cannot create capture directory %s: %v", o.sctx.CaptureDir, err))
		}
		o.captureDirCreated = true
	}
	return nil
}

// report writes the terminal line for outcome.
func (o *Orchestrator) report(outcome Outcome) {
	if o.sink == nil {
		return
	}
	if outcome.Kind == OutcomeSuccess {
		o.sink.Success("%s", outcome.Message)
		return
	}
	o.sink.Printf("ERROR - %s", outcome.Message)
}
