package standalone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runningTestServer returns a Server wired to the mock client with the
// running flag latched, as if Start had completed.
func runningTestServer(t *testing.T, mock *mockManagementClient) *Server {
	t.Helper()
	spec := fakeInstall(t, javaSleeper)
	srv := NewServer(ConnectionInfo{Host: "127.0.0.1", Port: DefaultManagementPort}, spec,
		WithConsoleOutput(discardWriter{}),
		WithManagementClientFactory(func(ConnectionInfo) ManagementClient { return mock }),
	)
	srv.client = mock
	srv.monitor = stateMonitor{client: mock, running: true}
	srv.phase = PhaseRunning
	return srv
}

func awaitEvent(t *testing.T, events <-chan DeployEvent) DeployEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for deploy event")
		return DeployEvent{}
	}
}

func TestScannerDeploysMarkedArchive(t *testing.T) {
	mock := newMockClient(nil)
	srv := runningTestServer(t, mock)
	dir := t.TempDir()

	events, cleanup, err := WatchDeployments(context.Background(), srv, dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, cleanup()) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.war"), []byte("bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.war"+MarkerDoDeploy), []byte("app.war"), 0o644))

	ev := awaitEvent(t, events)
	require.NoError(t, ev.Err)
	require.Equal(t, "app.war", ev.Name)

	require.Contains(t, mock.opNames(), OpDeploy)
	require.FileExists(t, filepath.Join(dir, "app.war"+MarkerDeployed))

	_, err = os.Stat(filepath.Join(dir, "app.war"+MarkerDoDeploy))
	require.True(t, os.IsNotExist(err), "consumed .dodeploy marker must be removed")
	_, err = os.Stat(filepath.Join(dir, "app.war"+MarkerIsDeploying))
	require.True(t, os.IsNotExist(err), "transient .isdeploying marker must be removed")
}

func TestScannerWritesFailedMarker(t *testing.T) {
	mock := newMockClient(func(op Operation) (Result, error) {
		if op.Name == OpDeploy {
			return Result{Outcome: OutcomeFailed, FailureDescription: "bad archive"}, nil
		}
		return Result{Outcome: OutcomeSuccess}, nil
	})
	srv := runningTestServer(t, mock)
	dir := t.TempDir()

	events, cleanup, err := WatchDeployments(context.Background(), srv, dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, cleanup()) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.war"), []byte("bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.war"+MarkerDoDeploy), []byte("bad.war"), 0o644))

	ev := awaitEvent(t, events)
	require.Error(t, ev.Err)
	require.ErrorIs(t, ev.Err, ErrDeployFailed)

	body, err := os.ReadFile(filepath.Join(dir, "bad.war"+MarkerFailed))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "bad archive"), "failed marker body = %q", body)

	_, err = os.Stat(filepath.Join(dir, "bad.war"+MarkerDeployed))
	require.True(t, os.IsNotExist(err))
}

func TestScannerProcessesPreexistingMarkers(t *testing.T) {
	mock := newMockClient(nil)
	srv := runningTestServer(t, mock)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "early.war"), []byte("bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "early.war"+MarkerDoDeploy), []byte("early.war"), 0o644))

	events, cleanup, err := WatchDeployments(context.Background(), srv, dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, cleanup()) }()

	ev := awaitEvent(t, events)
	require.NoError(t, ev.Err)
	require.Equal(t, "early.war", ev.Name)
}

func TestScannerMissingDirectory(t *testing.T) {
	mock := newMockClient(nil)
	srv := runningTestServer(t, mock)

	_, _, err := WatchDeployments(context.Background(), srv, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
}

func TestScannerCleanupStops(t *testing.T) {
	mock := newMockClient(nil)
	srv := runningTestServer(t, mock)
	dir := t.TempDir()

	events, cleanup, err := WatchDeployments(context.Background(), srv, dir)
	require.NoError(t, err)
	require.NoError(t, cleanup())

	// The events channel closes once the scanner goroutine exits.
	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cleanup")
	}
}

func TestClearStaleMarkers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.war"+MarkerIsDeploying), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.war"+MarkerFailed), []byte("boom"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.war"+MarkerDeployed), nil, 0o644))

	require.NoError(t, ClearStaleMarkers(dir))

	_, err := os.Stat(filepath.Join(dir, "a.war"+MarkerIsDeploying))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "b.war"+MarkerFailed))
	require.True(t, os.IsNotExist(err))
	require.FileExists(t, filepath.Join(dir, "c.war"+MarkerDeployed))
}
