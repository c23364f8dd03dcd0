package standalone

import (
	"context"
	"strings"
)

// Management operation names issued by the supervisor
const (
	// OpReadAttribute reads a single attribute at an address
	OpReadAttribute = "read-attribute"
	// OpShutdown asks the server to shut down gracefully
	OpShutdown = "shutdown"
	// OpReload asks the server to reload its configuration
	OpReload = "reload"
	// OpDeploy deploys content under a deployment name
	OpDeploy = "deploy"
	// OpRedeploy replaces the content of an existing deployment
	OpRedeploy = "full-replace-deployment"
	// OpUndeploy removes a deployment
	OpUndeploy = "undeploy"
)

// ServerStateAttribute is the attribute polled during startup
const ServerStateAttribute = "server-state"

// Operation is a structured management request. Address is a sequence of
// key/value path segments; empty means the root address. Content carries
// deployment bytes for operations that upload an archive.
type Operation struct {
	// Name is the operation name, e.g. read-attribute
	Name string
	// Address is the target address as alternating key/value segments
	Address []string
	// Params holds additional operation parameters
	Params map[string]any
	// Content is optional deployment content
	Content []byte
}

// ReadAttributeOp builds a read-attribute operation at the root address
func ReadAttributeOp(name string) Operation {
	return Operation{
		Name:   OpReadAttribute,
		Params: map[string]any{"name": name},
	}
}

// ShutdownOp builds a shutdown operation at the root address
func ShutdownOp() Operation {
	return Operation{Name: OpShutdown}
}

// ReloadOp builds a reload operation at the root address
func ReloadOp() Operation {
	return Operation{Name: OpReload}
}

// Outcome classifies the result of a management operation
type Outcome int

const (
	// OutcomeUnknown is any unrecognized outcome string
	OutcomeUnknown Outcome = iota
	// OutcomeSuccess means the operation succeeded
	OutcomeSuccess
	// OutcomeFailed means the server rejected or failed the operation
	OutcomeFailed
	// OutcomeCancelled means the operation was rolled back or cancelled
	OutcomeCancelled
)

// String returns the wire representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseOutcome maps an outcome string to an Outcome
func ParseOutcome(s string) Outcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return OutcomeSuccess
	case "failed":
		return OutcomeFailed
	case "cancelled", "canceled":
		return OutcomeCancelled
	default:
		return OutcomeUnknown
	}
}

// Result is the structured response to a management operation
type Result struct {
	// Outcome is the overall outcome
	Outcome Outcome
	// Result is the flattened scalar result, e.g. a server-state string
	Result string
	// FailureDescription is the server's failure text when Outcome is not success
	FailureDescription string
	// RequiresReload is set when the response headers indicate the server
	// needs a reload or restart for the operation to fully take effect
	RequiresReload bool
}

// ManagementClient executes management operations against a running server.
// Implementations must be safe for use by a single goroutine at a time;
// the supervisor serializes access through its own lock.
type ManagementClient interface {
	// Execute performs one management operation round trip
	Execute(ctx context.Context, op Operation) (Result, error)
	// Close releases the client's resources. Close is idempotent.
	Close() error
}

// ConnectionInfo describes how to reach a server's management interface.
// Credentials is invoked per request; a nil callback means no authentication.
type ConnectionInfo struct {
	// Host is the management host address
	Host string
	// Port is the management port
	Port int
	// Credentials supplies the user and password for authentication
	Credentials func() (user, password string)
}

// DeployOutcome classifies the result of a deployment operation
type DeployOutcome int

const (
	// DeployFailed means the deployment did not succeed
	DeployFailed DeployOutcome = iota
	// DeploySuccess means the deployment succeeded with no further action
	DeploySuccess
	// DeployRequiresRestart means the deployment succeeded but the server
	// must be reloaded for it to take effect
	DeployRequiresRestart
)

// String returns the string representation of a DeployOutcome
func (d DeployOutcome) String() string {
	switch d {
	case DeploySuccess:
		return "success"
	case DeployRequiresRestart:
		return "requires-restart"
	default:
		return "failed"
	}
}

// classifyDeploy maps a management result onto a DeployOutcome
func classifyDeploy(res Result) DeployOutcome {
	if res.Outcome != OutcomeSuccess {
		return DeployFailed
	}
	if res.RequiresReload {
		return DeployRequiresRestart
	}
	return DeploySuccess
}
