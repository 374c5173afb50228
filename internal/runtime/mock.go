package runtime

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
)

// MockRuntime is a mock implementation of ContainerRuntime for testing
type MockRuntime struct {
	mu sync.Mutex

	// Images lists images CheckAvailable and Spawn treat as present
	Images map[string]bool

	// Unavailable, if set, makes CheckAvailable fail with this message
	Unavailable string

	// Containers tracks running mock containers by name
	Containers map[string]*mockProcess

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// SpawnOutput is written to SpawnOptions.Stdout on every spawn
	SpawnOutput string

	// ReleaseDelay keeps a killed container's name and process alive this
	// long after Kill returns, like an engine still removing the container
	ReleaseDelay time.Duration

	// CallLog records all method calls for verification
	CallLog []MockCall
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime with the given images present
func NewMockRuntime(images ...string) *MockRuntime {
	m := &MockRuntime{
		Images:     make(map[string]bool),
		Containers: make(map[string]*mockProcess),
		Errors:     make(map[string]error),
		CallLog:    make([]MockCall, 0),
	}
	for _, image := range images {
		m.Images[image] = true
	}
	return m
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// AddContainer marks name as taken by a running container
func (m *MockRuntime) AddContainer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers[name] = newMockProcess()
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	return "mock"
}

// CheckAvailable reports the configured availability
func (m *MockRuntime) CheckAvailable(ctx context.Context, images ...string) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CheckAvailable", images)

	if m.Unavailable != "" {
		return false, m.Unavailable
	}
	for _, image := range images {
		if !m.Images[image] {
			return false, fmt.Sprintf("mock image %s not found", image)
		}
	}
	return true, "mock is available"
}

// Spawn registers a running container until Kill is called
func (m *MockRuntime) Spawn(ctx context.Context, opts SpawnOptions) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Spawn", opts)

	if err, ok := m.Errors["Spawn"]; ok {
		return nil, errors.SpawnFailed(opts.Name, err)
	}
	if err := ValidateContainerName(opts.Name); err != nil {
		return nil, errors.SpawnFailed(opts.Name, err)
	}
	if _, taken := m.Containers[opts.Name]; taken {
		return nil, errors.SpawnFailed(opts.Name, fmt.Errorf("container name %s is already in use", opts.Name))
	}
	if !m.Images[opts.Image] {
		return nil, errors.SpawnFailed(opts.Name, fmt.Errorf("image %s not found", opts.Image))
	}

	if m.SpawnOutput != "" && opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, m.SpawnOutput)
	}

	proc := newMockProcess()
	m.Containers[opts.Name] = proc
	return newHandle(opts.Name, opts.Image, proc), nil
}

// Kill stops and forgets a container; unknown names are ignored
func (m *MockRuntime) Kill(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Kill", name)

	if err, ok := m.Errors["Kill"]; ok {
		return err
	}

	proc, ok := m.Containers[name]
	if !ok {
		return nil
	}
	if m.ReleaseDelay > 0 {
		go m.release(name, proc, m.ReleaseDelay)
		return nil
	}
	delete(m.Containers, name)
	proc.stop()
	return nil
}

// release frees name after delay, then ends the container's process.
func (m *MockRuntime) release(name string, proc *mockProcess, delay time.Duration) {
	time.Sleep(delay)
	m.mu.Lock()
	if m.Containers[name] == proc {
		delete(m.Containers, name)
	}
	m.mu.Unlock()
	proc.stop()
}

// IsRunning checks if a container is currently running
func (m *MockRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("IsRunning", name)

	if err, ok := m.Errors["IsRunning"]; ok {
		return false, err
	}

	_, ok := m.Containers[name]
	return ok, nil
}

// mockProcess blocks in Wait until stopped.
type mockProcess struct {
	done chan struct{}
	once sync.Once
}

func newMockProcess() *mockProcess {
	return &mockProcess{done: make(chan struct{})}
}

func (p *mockProcess) stop() {
	p.once.Do(func() { close(p.done) })
}

func (p *mockProcess) Wait() error {
	<-p.done
	return nil
}

func (p *mockProcess) Pid() int { return 0 }

var _ ContainerRuntime = (*MockRuntime)(nil)
