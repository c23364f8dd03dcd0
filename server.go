package standalone

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

// Server supervises the lifecycle of one managed standalone server
// process: it launches the process, polls the management interface until
// the server reports running, and orchestrates graceful shutdown and
// deployment. Start, Stop, and the deployment operations are serialized by
// a per-instance lock; only the console drain runs concurrently with them.
type Server struct {
	mu sync.Mutex

	info ConnectionInfo
	spec *LaunchSpec

	logger      *log.Logger
	consoleSink io.Writer
	newClient   func(ConnectionInfo) ManagementClient
	killTimeout time.Duration
	consoleWait time.Duration

	phase    Phase
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int
	client   ManagementClient
	console  *ConsoleDrain
	consoleR *os.File
	monitor  stateMonitor
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithLogger sets the logger for supervisor lifecycle events
func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithConsoleOutput sets the sink that receives the server's console lines
func WithConsoleOutput(w io.Writer) ServerOption {
	return func(s *Server) {
		s.consoleSink = w
	}
}

// WithManagementClientFactory overrides how the management session is
// created when the server starts
func WithManagementClientFactory(fn func(ConnectionInfo) ManagementClient) ServerOption {
	return func(s *Server) {
		s.newClient = fn
	}
}

// WithKillTimeout sets how long a terminated process may linger before the
// supervisor escalates to SIGKILL
func WithKillTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.killTimeout = d
	}
}

// WithConsoleWait sets how long stop waits for the shutdown marker
func WithConsoleWait(d time.Duration) ServerOption {
	return func(s *Server) {
		s.consoleWait = d
	}
}

// NewServer creates a supervisor for one standalone server instance
func NewServer(info ConnectionInfo, spec *LaunchSpec, opts ...ServerOption) *Server {
	s := &Server{
		info:        info,
		spec:        spec,
		consoleSink: os.Stdout,
		killTimeout: DefaultKillTimeout,
		consoleWait: DefaultConsoleWait,
		phase:       PhaseNotStarted,
		exitCode:    -1,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "standalone"})
	}
	if s.newClient == nil {
		s.newClient = func(info ConnectionInfo) ManagementClient {
			return NewHTTPClient(info)
		}
	}

	return s
}

// Phase returns the current lifecycle phase
func (s *Server) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ExitCode returns the exit code of the most recently completed process,
// or -1 if no process has exited yet
func (s *Server) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// IsRunning reports whether the server is in a running state. The result
// latches once true; an explicit Stop clears it.
func (s *Server) IsRunning(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.isRunning(ctx)
}

// Start launches the server process and blocks until the management
// interface reports a running state or the startup budget is exhausted.
// On failure the process is terminated before the error is returned, so a
// failed Start never leaves a dangling process. Cancelling ctx aborts the
// poll loop without cleanup; use Stop to tear down in that case.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseStarting, PhaseRunning, PhaseStopping:
		return fmt.Errorf("cannot start in phase %s: %w", s.phase, ErrCycleInProgress)
	}

	cmd, console, err := s.spec.spawn()
	if err != nil {
		return err
	}

	s.cmd = cmd
	s.consoleR = console
	s.done = make(chan struct{})
	s.phase = PhaseStarting

	done := s.done
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	s.console = StartConsoleDrain(console, s.consoleSink, ShutdownMarker)
	s.client = s.newClient(s.info)
	s.monitor = stateMonitor{client: s.client}

	s.logger.Info("starting managed server",
		"pid", cmd.Process.Pid, "timeout", s.spec.StartupTimeout)

	budget := s.spec.StartupTimeout
	sleep := startupPollFirst
	serverAvailable := false
	for budget > 0 && !serverAvailable {
		serverAvailable = s.monitor.isRunning(ctx)
		if !serverAvailable {
			if s.processExited() {
				break
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("startup interrupted: %w", ctx.Err())
			case <-time.After(sleep):
			}
			budget -= sleep
			// From 50ms this settles at a fixed 100ms cadence.
			sleep /= 2
			if sleep < startupPollFloor {
				sleep = startupPollFloor
			}
		}
	}

	if !serverAvailable {
		died := s.processExited()
		killErr := s.destroyProcess()
		if s.client != nil {
			_ = s.client.Close()
			s.client = nil
		}
		s.monitor.reset()
		s.phase = PhaseFailedStart
		if died {
			return fmt.Errorf("%w (exit code %d)", ErrProcessDied, s.exitCode)
		}
		if killErr != nil {
			return fmt.Errorf("managed server was not started within [%d] s: %w (kill failed: %v)",
				int(s.spec.StartupTimeout.Seconds()), ErrStartupTimeout, killErr)
		}
		return fmt.Errorf("managed server was not started within [%d] s: %w",
			int(s.spec.StartupTimeout.Seconds()), ErrStartupTimeout)
	}

	s.phase = PhaseRunning
	s.logger.Info("managed server is running", "pid", cmd.Process.Pid)
	return nil
}

// Stop shuts the server down. It is a no-op when the server is not
// running. The teardown order is fixed: shutdown request, session close,
// console wait, process termination. The first three steps are best
// effort; the final termination always runs and is the only step whose
// error propagates.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.monitor.isRunning(ctx) {
		return nil
	}

	s.phase = PhaseStopping
	s.logger.Info("stopping managed server", "pid", s.cmd.Process.Pid)

	var killErr error
	func() {
		defer func() {
			s.monitor.reset()
			killErr = s.destroyProcess()
		}()

		if s.client != nil {
			if _, err := s.client.Execute(ctx, ShutdownOp()); err != nil {
				s.logger.Debug("shutdown request failed", "err", err)
			}
			if err := s.client.Close(); err != nil {
				s.logger.Debug("closing management client", "err", err)
			}
			s.client = nil
		}

		if s.console != nil {
			if !s.console.AwaitShutdown(s.consoleWait) {
				s.logger.Debug("shutdown marker not seen", "waited", s.consoleWait)
			}
		}
	}()

	s.phase = PhaseStopped
	if killErr != nil {
		return killErr
	}
	s.logger.Info("managed server stopped", "exit", s.exitCode)
	return nil
}

// processExited probes the waiter without blocking
func (s *Server) processExited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// destroyProcess terminates the server process and blocks until it has
// exited, escalating from SIGTERM to SIGKILL after the kill timeout. It
// then winds down the console drain. Safe to call when no process is live.
func (s *Server) destroyProcess() error {
	if s.cmd == nil {
		return nil
	}

	var signalErr error
	if !s.processExited() {
		if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			signalErr = err
		}
		select {
		case <-s.done:
		case <-time.After(s.killTimeout):
			s.logger.Warn("process ignored SIGTERM, killing", "pid", s.cmd.Process.Pid)
			if err := s.cmd.Process.Kill(); err != nil {
				signalErr = err
			}
			<-s.done
		}
	}

	if s.cmd.ProcessState != nil {
		s.exitCode = s.cmd.ProcessState.ExitCode()
	}
	s.cmd = nil

	// Unblock the drain if the stream is somehow still open, then wait
	// for it to finish echoing.
	if s.consoleR != nil {
		_ = s.consoleR.Close()
		s.consoleR = nil
	}
	if s.console != nil {
		_ = s.console.Wait()
		s.console = nil
	}

	return signalErr
}
