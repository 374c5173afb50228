package system

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MockFS implements FileSystem for testing.
type MockFS struct {
	mu       sync.RWMutex
	files    map[string]fs.FileMode
	dirs     map[string]bool
	readOnly map[string]bool

	// Error injection
	MkdirAllErr error
	RemoveErr   error
	StatErr     error
}

// NewMockFS creates a new MockFS with an empty filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files:    make(map[string]fs.FileMode),
		dirs:     make(map[string]bool),
		readOnly: make(map[string]bool),
	}
}

// AddFile adds a writable file (and its parent directories) to the mock filesystem.
func (m *MockFS) AddFile(path string, mode fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = mode
	dir := filepath.Dir(path)
	for dir != "." && dir != "/" {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

// AddDir adds a writable directory to the mock filesystem.
func (m *MockFS) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
}

// SetReadOnly marks an existing or missing path as not writable.
func (m *MockFS) SetReadOnly(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly[path] = true
}

func (m *MockFS) Stat(path string) (fs.FileInfo, error) {
	if m.StatErr != nil {
		return nil, m.StatErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if mode, ok := m.files[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), mode: mode}, nil
	}
	if _, ok := m.dirs[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), isDir: true, mode: fs.ModeDir | 0755}, nil
	}
	return nil, fs.ErrNotExist
}

func (m *MockFS) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, fileOk := m.files[path]
	_, dirOk := m.dirs[path]
	return fileOk || dirOk
}

func (m *MockFS) IsDir(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.dirs[path]
	return ok
}

// Writable reports true for existing paths that were not marked read-only.
// The current directory "." always exists in the mock.
func (m *MockFS) Writable(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readOnly[path] {
		return false
	}
	_, fileOk := m.files[path]
	_, dirOk := m.dirs[path]
	return fileOk || dirOk || path == "."
}

func (m *MockFS) MkdirAll(path string, perm fs.FileMode) error {
	if m.MkdirAllErr != nil {
		return m.MkdirAllErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := path
	for current != "." && current != "/" {
		m.dirs[current] = true
		current = filepath.Dir(current)
	}
	return nil
}

func (m *MockFS) Remove(path string) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		delete(m.files, path)
		return nil
	}
	if _, ok := m.dirs[path]; ok {
		delete(m.dirs, path)
		return nil
	}
	return fs.ErrNotExist
}

// mockFileInfo implements fs.FileInfo for testing.
type mockFileInfo struct {
	name  string
	mode  fs.FileMode
	isDir bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return 0 }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// ExitError is a process exit status returned by mock processes.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode returns the process exit status.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed and started commands for verification.
	Commands []MockCommand

	// Responses maps command patterns to responses. Lookup tries the full
	// command line first, then "command arg1", then "command".
	Responses map[string]MockResponse

	// Sequences maps command patterns to responses consumed one per call.
	// The last response repeats once the others are used up. Sequences are
	// consulted before Responses.
	Sequences map[string][]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse

	// Paths lists binaries LookPath can find. A nil map finds everything.
	Paths map[string]bool

	// StartErr is returned by Start if set.
	StartErr error

	// StartOutput is written to Stdout of every started process.
	StartOutput string

	// WaitErr is returned by Wait of every started process.
	WaitErr error

	// OnStart, if set, runs when a process is started and its error is
	// returned by Wait. It overrides WaitErr.
	OnStart func(cmd MockCommand) error
}

// MockCommand records an executed command.
type MockCommand struct {
	Name    string
	Args    []string
	Options StartOptions
	Started bool
}

// Line returns the command line as a single string.
func (c MockCommand) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
		Sequences: make(map[string][]MockResponse),
	}
}

// AddResponse adds a response for a specific command pattern.
func (m *MockExecutor) AddResponse(pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, Err: err}
}

// AddSequence queues responses for a command pattern, returned in order.
func (m *MockExecutor) AddSequence(pattern string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sequences == nil {
		m.Sequences = make(map[string][]MockResponse)
	}
	m.Sequences[pattern] = append(m.Sequences[pattern], responses...)
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := MockCommand{Name: name, Args: args}
	m.Commands = append(m.Commands, cmd)

	keys := []string{cmd.Line()}
	if len(args) > 0 {
		keys = append(keys, name+" "+args[0])
	}
	keys = append(keys, name)

	for _, key := range keys {
		if seq := m.Sequences[key]; len(seq) > 0 {
			if len(seq) > 1 {
				m.Sequences[key] = seq[1:]
			}
			return seq[0].Output, seq[0].Err
		}
	}
	for _, key := range keys {
		if resp, ok := m.Responses[key]; ok {
			return resp.Output, resp.Err
		}
	}

	return m.DefaultResponse.Output, m.DefaultResponse.Err
}

func (m *MockExecutor) Start(ctx context.Context, opts StartOptions, name string, args ...string) (Process, error) {
	m.mu.Lock()
	cmd := MockCommand{Name: name, Args: args, Options: opts, Started: true}
	m.Commands = append(m.Commands, cmd)
	startErr, output, waitErr, onStart := m.StartErr, m.StartOutput, m.WaitErr, m.OnStart
	m.mu.Unlock()

	if startErr != nil {
		return nil, startErr
	}
	if output != "" && opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, output)
	}
	if onStart != nil {
		waitErr = onStart(cmd)
	}
	return &MockProcess{err: waitErr}, nil
}

func (m *MockExecutor) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Paths == nil || m.Paths[name] {
		return "/usr/bin/" + name, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// StartedCommands returns the commands launched through Start.
func (m *MockExecutor) StartedCommands() []MockCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	var started []MockCommand
	for _, c := range m.Commands {
		if c.Started {
			started = append(started, c)
		}
	}
	return started
}

// Reset clears all recorded commands.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
}

// MockProcess is a Process that has already finished.
type MockProcess struct {
	err error
}

func (p *MockProcess) Wait() error { return p.err }

func (p *MockProcess) Pid() int { return 0 }
