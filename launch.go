package standalone

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// LaunchSpec describes how to build the command line for a standalone
// server process. It provides a fluent interface mirroring how the server
// scripts assemble their arguments.
type LaunchSpec struct {
	// Home is the server home directory
	Home string
	// ModulesDir is the module repository directory
	ModulesDir string
	// BundlesDir is the OSGi bundle repository directory
	BundlesDir string
	// JavaHome is the JDK installation used to launch the server
	JavaHome string
	// JVMArgs are passed to the JVM verbatim, before any server flags
	JVMArgs []string
	// ServerConfig is an optional server configuration file name
	ServerConfig string
	// StartupTimeout bounds the startup poll loop
	StartupTimeout time.Duration
}

// NewLaunchSpec creates a LaunchSpec with default settings. JavaHome
// defaults to the JAVA_HOME environment variable.
func NewLaunchSpec(home, modulesDir, bundlesDir string) *LaunchSpec {
	return &LaunchSpec{
		Home:           home,
		ModulesDir:     modulesDir,
		BundlesDir:     bundlesDir,
		JavaHome:       os.Getenv("JAVA_HOME"),
		StartupTimeout: DefaultStartupTimeout,
	}
}

// WithJavaHome sets the JDK installation directory
func (s *LaunchSpec) WithJavaHome(javaHome string) *LaunchSpec {
	s.JavaHome = javaHome
	return s
}

// WithJVMArgs sets the JVM arguments passed verbatim to the java executable
func (s *LaunchSpec) WithJVMArgs(args ...string) *LaunchSpec {
	s.JVMArgs = args
	return s
}

// WithServerConfig selects a server configuration file by name
func (s *LaunchSpec) WithServerConfig(name string) *LaunchSpec {
	s.ServerConfig = name
	return s
}

// WithStartupTimeout sets the startup poll budget
func (s *LaunchSpec) WithStartupTimeout(d time.Duration) *LaunchSpec {
	s.StartupTimeout = d
	return s
}

// Command builds the full argument vector for the server process. It fails
// when the module-loader archive is missing from the home directory; it
// does not validate JVM arguments, which the spawned process checks itself.
func (s *LaunchSpec) Command() ([]string, error) {
	modulesJar := filepath.Join(s.Home, ModulesJar)
	if _, err := os.Stat(modulesJar); err != nil {
		return nil, &OpError{Op: "launch", Path: modulesJar, Err: ErrModulesJarMissing}
	}

	javaExec := filepath.Join(s.JavaHome, "bin", "java")
	if strings.Contains(s.JavaHome, " ") {
		javaExec = `"` + javaExec + `"`
	}

	cmd := make([]string, 0, len(s.JVMArgs)+16)
	cmd = append(cmd, javaExec)
	cmd = append(cmd, s.JVMArgs...)

	cmd = append(cmd,
		"-Djboss.home.dir="+s.Home,
		"-Dorg.jboss.boot.log.file="+filepath.Join(s.Home, LogDir, BootLog),
		"-Dlogging.configuration=file:"+filepath.Join(s.Home, ConfigDir, LoggingProperties),
		"-Djboss.modules.dir="+s.ModulesDir,
		"-Djboss.bundles.dir="+s.BundlesDir,
		"-jar", modulesJar,
		"-mp", s.ModulesDir,
		"-jaxpmodule", JAXPModule,
		MainModule,
	)

	if s.ServerConfig != "" {
		cmd = append(cmd, "-server-config", s.ServerConfig)
	}

	return cmd, nil
}

// spawn starts the server process with stdout and stderr merged into a
// single stream. The returned reader is the parent's end of that stream;
// it reaches EOF when the process exits.
func (s *LaunchSpec) spawn() (*exec.Cmd, *os.File, error) {
	argv, err := s.Command()
	if err != nil {
		return nil, nil, err
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("creating console pipe: %w", err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, nil, &OpError{Op: "launch", Path: argv[0], Err: err}
	}

	// The child holds its own copy of the write end; closing ours makes the
	// read end see EOF once the process exits.
	_ = pw.Close()

	return cmd, pr, nil
}
