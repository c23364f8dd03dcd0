package standalone

import "time"

// Filesystem layout expected under the server home directory
const (
	// ModulesJar is the module-loader archive resolved under the home directory
	ModulesJar = "jboss-modules.jar"

	// ConfigDir is the configuration subdirectory of a standalone installation
	ConfigDir = "standalone/configuration"

	// LogDir is the log subdirectory of a standalone installation
	LogDir = "standalone/log"

	// LoggingProperties is the logging configuration file under ConfigDir
	LoggingProperties = "logging.properties"

	// BootLog is the boot log file under LogDir
	BootLog = "boot.log"
)

// Fixed command-line tokens for launching the server
const (
	// MainModule is the main module name for a standalone server
	MainModule = "org.jboss.as.standalone"

	// JAXPModule is the XML provider module passed via -jaxpmodule
	JAXPModule = "javax.xml.jaxp-provider"
)

// ShutdownMarker is the log-message code emitted by the server when its
// shutdown handler has finished. The console drain fires its one-shot
// completion signal when a line containing this code is seen.
const ShutdownMarker = "JBAS015950"

// Defaults that can be overridden through options
const (
	// DefaultStartupTimeout is the default budget for the startup poll loop
	DefaultStartupTimeout = 60 * time.Second

	// DefaultConsoleWait is how long stop waits for the shutdown marker
	DefaultConsoleWait = 5 * time.Second

	// DefaultKillTimeout is how long a terminated process may linger before
	// the supervisor escalates to SIGKILL
	DefaultKillTimeout = 10 * time.Second

	// DefaultDialTimeout is the default timeout for management connections
	DefaultDialTimeout = 2 * time.Second

	// DefaultRequestTimeout is the default timeout for one management round trip
	DefaultRequestTimeout = 15 * time.Second

	// DefaultBackoffMin is the minimum backoff between management retries
	DefaultBackoffMin = 10 * time.Millisecond

	// DefaultBackoffMax is the maximum backoff between management retries
	DefaultBackoffMax = 1 * time.Second

	// DefaultMaxAttempts is the default number of management dial attempts
	DefaultMaxAttempts = 3

	// DefaultManagementPort is the standalone HTTP management port
	DefaultManagementPort = 9990
)

// Startup poll cadence. The first wait is 50ms; every wait after that is
// max(prev/2, 100)ms, which from 50 settles at a fixed 100ms. This mirrors
// the cadence the server's tooling has always used.
const (
	startupPollFirst = 50 * time.Millisecond
	startupPollFloor = 100 * time.Millisecond
)

// Phase is the supervisor-side lifecycle phase of one managed server cycle.
type Phase int

const (
	// PhaseNotStarted means no cycle has begun
	PhaseNotStarted Phase = iota
	// PhaseStarting means the process is spawned and being polled for readiness
	PhaseStarting
	// PhaseRunning means the server reported a running management state
	PhaseRunning
	// PhaseStopping means a stop sequence is in progress
	PhaseStopping
	// PhaseStopped means the cycle completed and the process has exited
	PhaseStopped
	// PhaseFailedStart means startup timed out or the process died first.
	// The cycle is over; a new Start begins a fresh cycle.
	PhaseFailedStart
)

// String returns the string representation of a Phase
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	case PhaseFailedStart:
		return "failed-start"
	default:
		return "unknown"
	}
}

// ServerState is the server's self-reported lifecycle state as returned by
// a read-attribute query for server-state.
type ServerState int

const (
	// ServerStateUnknown is any unrecognized state string
	ServerStateUnknown ServerState = iota
	// ServerStateStarting means the server is still booting
	ServerStateStarting
	// ServerStateRunning means the server is fully started
	ServerStateRunning
	// ServerStateStopping means the server is shutting down
	ServerStateStopping
	// ServerStateReloadRequired means a reload is needed to apply changes
	ServerStateReloadRequired
	// ServerStateRestartRequired means a full restart is needed
	ServerStateRestartRequired
)

// String returns the wire representation of a ServerState
func (s ServerState) String() string {
	switch s {
	case ServerStateStarting:
		return "STARTING"
	case ServerStateRunning:
		return "RUNNING"
	case ServerStateStopping:
		return "STOPPING"
	case ServerStateReloadRequired:
		return "RELOAD_REQUIRED"
	case ServerStateRestartRequired:
		return "RESTART_REQUIRED"
	default:
		return "UNKNOWN"
	}
}

// Hot-deploy marker file suffixes. The scanner consumes .dodeploy markers
// and leaves .isdeploying, .deployed, or .failed markers behind, the same
// protocol the server's own deployment scanner uses.
const (
	// MarkerDoDeploy requests deployment of the archive it names
	MarkerDoDeploy = ".dodeploy"

	// MarkerIsDeploying indicates a deployment is in flight
	MarkerIsDeploying = ".isdeploying"

	// MarkerDeployed indicates the archive deployed successfully
	MarkerDeployed = ".deployed"

	// MarkerFailed indicates the deployment failed; the marker body holds the error
	MarkerFailed = ".failed"
)

// MarkerFileMode is the mode for marker files written by the scanner
const MarkerFileMode = 0o644
