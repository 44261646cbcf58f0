package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockSandbox is a mock implementation of Sandbox for testing
type MockSandbox struct {
	mu sync.RWMutex

	// Name is returned by ID()
	Name string

	// Processes is the process table in listing order
	Processes []*MockProcess

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// ExecHandler produces results for Exec. Defaults to exit 0.
	ExecHandler func(command string, opts ExecOptions) *ExecResult

	// NewProcess configures processes created by StartProcess. The
	// returned process is appended to Processes. Defaults to a reachable
	// process in StatusStarting.
	NewProcess func(command string, opts StartOptions) *MockProcess

	// CallLog records all method calls for verification
	CallLog []MockCall

	nextID int
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockSandbox creates a new mock sandbox
func NewMockSandbox(name string) *MockSandbox {
	return &MockSandbox{
		Name:    name,
		Errors:  make(map[string]error),
		CallLog: make([]MockCall, 0),
	}
}

func (m *MockSandbox) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockSandbox) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// AddProcess adds a process to the mock process table
func (m *MockSandbox) AddProcess(p *MockProcess) *MockProcess {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ProcID == "" {
		m.nextID++
		p.ProcID = fmt.Sprintf("%d", m.nextID)
	}
	m.Processes = append(m.Processes, p)
	return p
}

// GetCallsFor returns all calls for a specific method
func (m *MockSandbox) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// ID returns the sandbox name
func (m *MockSandbox) ID() string {
	return m.Name
}

// ListProcesses returns the process table
func (m *MockSandbox) ListProcesses(ctx context.Context) ([]Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListProcesses")

	if err, ok := m.Errors["ListProcesses"]; ok {
		return nil, err
	}

	procs := make([]Process, 0, len(m.Processes))
	for _, p := range m.Processes {
		procs = append(procs, p)
	}
	return procs, nil
}

// StartProcess creates a new mock process
func (m *MockSandbox) StartProcess(ctx context.Context, command string, opts StartOptions) (Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("StartProcess", command, opts)

	if err, ok := m.Errors["StartProcess"]; ok {
		return nil, err
	}

	var p *MockProcess
	if m.NewProcess != nil {
		p = m.NewProcess(command, opts)
	} else {
		p = &MockProcess{Reachable: true}
	}
	if p.Cmd == "" {
		p.Cmd = command
	}
	if p.ProcStatus == "" {
		p.ProcStatus = StatusStarting
	}
	if p.ProcID == "" {
		m.nextID++
		p.ProcID = fmt.Sprintf("%d", m.nextID)
	}
	m.Processes = append(m.Processes, p)

	return p, nil
}

// Exec records the command and returns the configured result
func (m *MockSandbox) Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exec", command, opts)

	if err, ok := m.Errors["Exec"]; ok {
		return nil, err
	}

	if m.ExecHandler != nil {
		return m.ExecHandler(command, opts), nil
	}
	return &ExecResult{ExitCode: 0}, nil
}

// MockProcess is a scripted process handle
type MockProcess struct {
	mu sync.Mutex

	ProcID     string
	Cmd        string
	ProcStatus Status

	// Reachable controls whether WaitForPort succeeds
	Reachable bool

	// Gate, when set, makes WaitForPort block until it is closed or the
	// context ends
	Gate <-chan struct{}

	// Output returned by Logs, or LogsErr
	Output  Logs
	LogsErr error

	// KillErr is returned by Kill
	KillErr error

	// Recorded interactions
	KillCount    int
	WaitTimeouts []time.Duration
}

func (p *MockProcess) ID() string      { return p.ProcID }
func (p *MockProcess) Command() string { return p.Cmd }

func (p *MockProcess) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ProcStatus
}

// Kill marks the process killed unless KillErr is set
func (p *MockProcess) Kill(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.KillCount++
	if p.KillErr != nil {
		return p.KillErr
	}
	p.ProcStatus = StatusKilled
	return nil
}

// WaitForPort records the timeout and succeeds only when Reachable
func (p *MockProcess) WaitForPort(ctx context.Context, port int, timeout time.Duration) error {
	p.mu.Lock()
	p.WaitTimeouts = append(p.WaitTimeouts, timeout)
	gate := p.Gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return fmt.Errorf("%w: port %d: %v", ErrPortTimeout, port, ctx.Err())
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Reachable || p.ProcStatus == StatusKilled {
		return fmt.Errorf("%w: port %d after %s", ErrPortTimeout, port, timeout)
	}
	if p.ProcStatus == StatusStarting {
		p.ProcStatus = StatusRunning
	}
	return nil
}

// Logs returns the scripted output
func (p *MockProcess) Logs(ctx context.Context) (Logs, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LogsErr != nil {
		return Logs{}, p.LogsErr
	}
	return p.Output, nil
}

// Kills returns how many times Kill was called
func (p *MockProcess) Kills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.KillCount
}

// Waits returns the timeouts WaitForPort was called with
func (p *MockProcess) Waits() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.WaitTimeouts...)
}

// Ensure mocks implement their interfaces
var (
	_ Sandbox = (*MockSandbox)(nil)
	_ Process = (*MockProcess)(nil)
)
