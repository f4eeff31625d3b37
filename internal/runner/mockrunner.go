package runner

import (
	"context"
	"strings"
	"sync"
	"time"
)

type MockRunner struct {
	mu           sync.Mutex
	Commands     []MockCommand
	Responses    map[string]MockResponse
	ResponseFunc func(name string, args ...string) ([]byte, error)
}

type MockCommand struct {
	Name    string
	Args    []string
	Timeout time.Duration
	Mode    Mode
}

type MockResponse struct {
	Output []byte
	Error  error
}

func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]MockResponse),
	}
}

func (m *MockRunner) Run(
	_ context.Context,
	timeout time.Duration,
	mode Mode,
	name string,
	args ...string,
) ([]byte, error) {
	m.mu.Lock()
	m.Commands = append(m.Commands, MockCommand{
		Name:    name,
		Args:    args,
		Timeout: timeout,
		Mode:    mode,
	})
	resp, ok := m.Responses[cmdKey(name, args...)]
	fn := m.ResponseFunc
	m.mu.Unlock()

	if ok {
		return resp.Output, resp.Error
	}
	if fn != nil {
		return fn(name, args...)
	}
	return []byte{}, nil
}

// AddResponse scripts the answer for a command, keyed as "name|arg1|arg2".
func (m *MockRunner) AddResponse(key string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[key] = MockResponse{Output: output, Error: err}
}

func (m *MockRunner) VerifyCommand(name string, args ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := cmdKey(name, args...)
	for _, cmd := range m.Commands {
		if cmdKey(cmd.Name, cmd.Args...) == want {
			return true
		}
	}
	return false
}

func (m *MockRunner) VerifyRunCount(name string, count int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, cmd := range m.Commands {
		if cmd.Name == name {
			n++
		}
	}
	return n == count
}

func cmdKey(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), "|")
}
