package standalone

import (
	"context"
	"strings"
)

// ParseServerState maps a server-state attribute value to a ServerState.
// Matching is case-insensitive because the HTTP and native management
// interfaces disagree on capitalization.
func ParseServerState(s string) ServerState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STARTING":
		return ServerStateStarting
	case "RUNNING":
		return ServerStateRunning
	case "STOPPING":
		return ServerStateStopping
	case "RELOAD-REQUIRED", "RELOAD_REQUIRED":
		return ServerStateReloadRequired
	case "RESTART-REQUIRED", "RESTART_REQUIRED":
		return ServerStateRestartRequired
	default:
		return ServerStateUnknown
	}
}

// stateMonitor classifies a server as running by polling the server-state
// attribute. The running flag latches: once the server has been observed
// running it is trusted without re-polling until reset clears it on stop.
// All access happens under the owning Server's lock.
type stateMonitor struct {
	client  ManagementClient
	running bool
}

// isRunning reports whether the server is in a running state. Any
// transport or protocol failure is classified as not running; this check
// never returns an error.
func (m *stateMonitor) isRunning(ctx context.Context) bool {
	if m.running {
		return true
	}
	if m.client == nil {
		return false
	}

	res, err := m.client.Execute(ctx, ReadAttributeOp(ServerStateAttribute))
	if err != nil {
		return false
	}

	state := ParseServerState(res.Result)
	m.running = res.Outcome == OutcomeSuccess &&
		state != ServerStateStarting &&
		state != ServerStateStopping
	return m.running
}

// reset clears the latched running flag and detaches the client
func (m *stateMonitor) reset() {
	m.running = false
	m.client = nil
}
