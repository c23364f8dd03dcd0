package standalone

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// mockManagementClient is a scripted ManagementClient for tests. Execute
// delegates to handler and records every operation issued.
type mockManagementClient struct {
	mu      sync.Mutex
	handler func(op Operation) (Result, error)
	ops     []Operation
	closes  int
}

func newMockClient(handler func(op Operation) (Result, error)) *mockManagementClient {
	return &mockManagementClient{handler: handler}
}

func (m *mockManagementClient) Execute(_ context.Context, op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	if m.handler == nil {
		return Result{Outcome: OutcomeSuccess}, nil
	}
	return m.handler(op)
}

func (m *mockManagementClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *mockManagementClient) opNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.ops))
	for i, op := range m.ops {
		names[i] = op.Name
	}
	return names
}

func (m *mockManagementClient) opCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ops)
}

// runningAfter returns a handler that reports a running server once n
// server-state reads have been answered.
func runningAfter(n int) func(op Operation) (Result, error) {
	var calls int
	return func(op Operation) (Result, error) {
		if op.Name != OpReadAttribute {
			return Result{Outcome: OutcomeSuccess}, nil
		}
		calls++
		if calls >= n {
			return Result{Outcome: OutcomeSuccess, Result: "running"}, nil
		}
		return Result{Outcome: OutcomeSuccess, Result: "STARTING"}, nil
	}
}

// fakeInstall lays out a minimal server home plus a fake JDK whose java
// binary is the given shell script, and returns a launch spec over them.
func fakeInstall(t *testing.T, javaScript string) *LaunchSpec {
	t.Helper()

	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ModulesJar), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	javaHome := t.TempDir()
	binDir := filepath.Join(javaHome, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "java"), []byte(javaScript), 0o755); err != nil {
		t.Fatal(err)
	}

	return NewLaunchSpec(home, filepath.Join(home, "modules"), filepath.Join(home, "bundles")).
		WithJavaHome(javaHome)
}

// newTestServer wires a fake install and a mock management client into a
// quiet Server suitable for lifecycle tests.
func newTestServer(t *testing.T, javaScript string, mock *mockManagementClient, opts ...ServerOption) *Server {
	t.Helper()

	spec := fakeInstall(t, javaScript)
	spec.WithStartupTimeout(5 * time.Second)

	all := append([]ServerOption{
		WithConsoleOutput(discardWriter{}),
		WithManagementClientFactory(func(ConnectionInfo) ManagementClient { return mock }),
		WithKillTimeout(2 * time.Second),
		WithConsoleWait(100 * time.Millisecond),
	}, opts...)

	return NewServer(ConnectionInfo{Host: "127.0.0.1", Port: DefaultManagementPort}, spec, all...)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
