package standalone

import (
	"errors"
	"fmt"
)

// Common errors returned by supervisor operations
var (
	// ErrModulesJarMissing indicates the module-loader archive is absent from
	// the server home directory
	ErrModulesJarMissing = errors.New("standalone: jboss-modules.jar not found")

	// ErrStartupTimeout indicates the server did not report running before
	// the startup budget was exhausted
	ErrStartupTimeout = errors.New("standalone: startup timeout")

	// ErrProcessDied indicates the server process exited before ever
	// reporting a running state
	ErrProcessDied = errors.New("standalone: server process exited during startup")

	// ErrNotRunning indicates an operation that requires a running server
	ErrNotRunning = errors.New("standalone: server is not running")

	// ErrCycleInProgress indicates Start was called while a previous cycle
	// had not fully completed
	ErrCycleInProgress = errors.New("standalone: lifecycle cycle already in progress")

	// ErrDeployFailed indicates a deployment operation reported an outcome
	// other than success
	ErrDeployFailed = errors.New("standalone: deployment failed")

	// ErrClientClosed indicates a management operation on a closed client
	ErrClientClosed = errors.New("standalone: management client closed")
)

// OpError represents an error from a management or launch operation
type OpError struct {
	// Op is the operation that failed (a management operation name, or
	// "launch" for process startup failures)
	Op string
	// Path is the file path or management address involved
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("standalone %s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk operations such as the
// hot-deploy scanner's initial directory sweep
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
