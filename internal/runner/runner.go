// Package runner invokes the external code-quality tool.
// It is the only part of the pipeline that may block for an unbounded
// time; cancellation is the caller's responsibility through the
// context.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// Result captures everything the pipeline needs from a tool invocation.
// Exit codes are not interpreted beyond "non-zero means diagnostics or
// mutation may still need processing".
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts command execution for testability.
type Runner interface {
	// LookPath checks if a binary exists in PATH.
	LookPath(name string) (string, error)

	// Run executes a command and returns its captured output.
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	// Dir is the working directory for invocations. Tools discover
	// their own configuration relative to it.
	Dir string
}

func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir}
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Diagnostics usually come with a non-zero exit. Not an
		// invocation failure.
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MockRunner implements Runner for tests.
type MockRunner struct {
	mu       sync.Mutex
	lookPath map[string]string
	commands map[string]mockResult
	handler  func(name string, args []string) (*Result, error)
	calls    [][]string
}

type mockResult struct {
	result *Result
	err    error
}

func NewMockRunner() *MockRunner {
	return &MockRunner{
		lookPath: make(map[string]string),
		commands: make(map[string]mockResult),
	}
}

// SetLookPath configures the mock to resolve a binary name.
func (m *MockRunner) SetLookPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPath[name] = path
}

// SetCommand configures the result for a command name.
func (m *MockRunner) SetCommand(name string, result *Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[name] = mockResult{result: result, err: err}
}

// SetHandler installs a function invoked for every Run call, letting a
// test mutate the synthetic file the way a real tool would.
func (m *MockRunner) SetHandler(handler func(name string, args []string) (*Result, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// Calls returns the recorded invocations.
func (m *MockRunner) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.lookPath[name]; ok {
		return path, nil
	}
	return "", exec.ErrNotFound
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	m.mu.Lock()
	handler := m.handler
	m.calls = append(m.calls, append([]string{name}, args...))
	result, ok := m.commands[name]
	if !ok {
		result, ok = m.commands[name+" "+strings.Join(args, " ")]
	}
	m.mu.Unlock()

	if handler != nil {
		return handler(name, args)
	}
	if ok {
		return result.result, result.err
	}
	return nil, exec.ErrNotFound
}
