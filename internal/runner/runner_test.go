package runner

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

func TestCommandRunner_Args(t *testing.T) {
	tests := []struct {
		name    string
		command string
		opts    Options
		want    []string
	}{
		{
			name:    "plain",
			command: "go test -count=1 -p 1 ./suite/...",
			want:    []string{"go", "test", "-count=1", "-p", "1", "./suite/..."},
		},
		{
			name:    "verbose and ignore warnings",
			command: "go test -count=1 ./suite/...",
			opts:    Options{Verbose: true, IgnoreWarnings: true},
			want:    []string{"go", "test", "-v", "-vet=off", "-count=1", "./suite/..."},
		},
		{
			name:    "other runner gets flags appended",
			command: "gotestsum --format 'short verbose' --",
			opts:    Options{Verbose: true},
			want:    []string{"gotestsum", "--format", "short verbose", "--", "-v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCommandRunner(tt.command, system.NewMockExecutor())
			got, err := r.Args(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandRunner_Args_Invalid(t *testing.T) {
	for _, command := range []string{"", "go test 'unterminated"} {
		r := NewCommandRunner(command, system.NewMockExecutor())
		_, err := r.Args(Options{})
		assert.Error(t, err, "command %q", command)
	}
}

func TestCommandRunner_Run_Passes(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.StartOutput = "ok  \tbstest/suite\t0.01s\n"
	r := NewCommandRunner("go test ./suite/...", exec)

	var out bytes.Buffer
	res, err := r.Run(context.Background(), Options{
		Dir:    "/srv/bstest",
		Env:    []string{"BSTEST_SESSION=abc"},
		Stdout: &out,
		Stderr: &out,
	})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, out.String(), "ok")

	started := exec.StartedCommands()
	require.Len(t, started, 1)
	assert.Equal(t, "/srv/bstest", started[0].Options.Dir)
	assert.Equal(t, []string{"BSTEST_SESSION=abc"}, started[0].Options.Env)
}

func TestCommandRunner_Run_Fails(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.WaitErr = &system.ExitError{Code: 2}
	r := NewCommandRunner("go test ./suite/...", exec)

	res, err := r.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 2, res.ExitCode)
}

func TestCommandRunner_Run_NotInstalled(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.Paths = map[string]bool{}
	r := NewCommandRunner("go test ./suite/...", exec)

	_, err := r.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, errors.KindDependencyMissing, errors.KindOf(err))
	assert.Empty(t, exec.StartedCommands())
}

func TestCommandRunner_Run_StartFails(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.StartErr = stderrors.New("permission denied")
	r := NewCommandRunner("go test ./suite/...", exec)

	_, err := r.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ExitRunnerFailure, errors.GetExitCode(err))
}

func TestCommandRunner_Run_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := system.NewMockExecutor()
	exec.OnStart = func(cmd system.MockCommand) error {
		cancel()
		return &system.ExitError{Code: 2}
	}
	r := NewCommandRunner("go test ./suite/...", exec)

	_, err := r.Run(ctx, Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ExitInterrupted, errors.GetExitCode(err))
}

func TestMockRunner(t *testing.T) {
	m := NewMockRunner()
	res, err := m.Run(context.Background(), Options{Verbose: true})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 1, m.CallCount())
	assert.True(t, m.Calls[0].Verbose)
}
