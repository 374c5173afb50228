package runner

import (
	"context"
	"sync"
)

// MockRunner is a Runner for testing the orchestrator.
type MockRunner struct {
	mu sync.Mutex

	// Result and Err are returned by Run unless OnRun is set
	Result Result
	Err    error

	// OnRun, if set, replaces the canned result
	OnRun func(ctx context.Context, opts Options) (Result, error)

	// Calls records the options of every run
	Calls []Options
}

// NewMockRunner creates a MockRunner whose runs pass.
func NewMockRunner() *MockRunner {
	return &MockRunner{Result: Result{Passed: true}}
}

func (m *MockRunner) Run(ctx context.Context, opts Options) (Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, opts)
	result, err, onRun := m.Result, m.Err, m.OnRun
	m.mu.Unlock()

	if onRun != nil {
		return onRun(ctx, opts)
	}
	return result, err
}

// CallCount returns how many times Run was called.
func (m *MockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ Runner = (*MockRunner)(nil)
