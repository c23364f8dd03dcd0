package standalone

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLaunchSpecCommandOrdering(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, ModulesJar), []byte("jar"), 0o644))

	modules := filepath.Join(home, "modules")
	bundles := filepath.Join(home, "bundles")

	spec := NewLaunchSpec(home, modules, bundles).
		WithJavaHome("/opt/jdk").
		WithJVMArgs("-Xmx512m", "-Dcustom=1").
		WithServerConfig("standalone-ha.xml")

	cmd, err := spec.Command()
	require.NoError(t, err)

	want := []string{
		"/opt/jdk/bin/java",
		"-Xmx512m",
		"-Dcustom=1",
		"-Djboss.home.dir=" + home,
		"-Dorg.jboss.boot.log.file=" + filepath.Join(home, LogDir, BootLog),
		"-Dlogging.configuration=file:" + filepath.Join(home, ConfigDir, LoggingProperties),
		"-Djboss.modules.dir=" + modules,
		"-Djboss.bundles.dir=" + bundles,
		"-jar", filepath.Join(home, ModulesJar),
		"-mp", modules,
		"-jaxpmodule", JAXPModule,
		MainModule,
		"-server-config", "standalone-ha.xml",
	}
	require.Equal(t, want, cmd)
}

func TestLaunchSpecCommandNoServerConfig(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ModulesJar), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec := NewLaunchSpec(home, "m", "b").WithJavaHome("/opt/jdk")
	cmd, err := spec.Command()
	if err != nil {
		t.Fatal(err)
	}

	for _, tok := range cmd {
		if tok == "-server-config" {
			t.Errorf("unexpected -server-config in %v", cmd)
		}
	}
	if cmd[len(cmd)-1] != MainModule {
		t.Errorf("last token = %q, want %q", cmd[len(cmd)-1], MainModule)
	}
}

func TestLaunchSpecQuotesSpacedJavaHome(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ModulesJar), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec := NewLaunchSpec(home, "m", "b").WithJavaHome("/opt/my jdk")
	cmd, err := spec.Command()
	if err != nil {
		t.Fatal(err)
	}

	want := `"/opt/my jdk/bin/java"`
	if cmd[0] != want {
		t.Errorf("java executable = %q, want %q", cmd[0], want)
	}
}

func TestLaunchSpecMissingModulesJar(t *testing.T) {
	spec := NewLaunchSpec(t.TempDir(), "m", "b").WithJavaHome("/opt/jdk")

	_, err := spec.Command()
	if !errors.Is(err, ErrModulesJarMissing) {
		t.Fatalf("err = %v, want ErrModulesJarMissing", err)
	}

	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %T, want *OpError", err)
	}
	if !strings.HasSuffix(opErr.Path, ModulesJar) {
		t.Errorf("Path = %q, want path ending in %q", opErr.Path, ModulesJar)
	}
}

func TestLaunchSpecJVMArgsVerbatim(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ModulesJar), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	args := []string{"-Xms64m", "-XX:+UseG1GC", "-ea"}
	spec := NewLaunchSpec(home, "m", "b").WithJavaHome("/opt/jdk").WithJVMArgs(args...)

	cmd, err := spec.Command()
	if err != nil {
		t.Fatal(err)
	}

	got := cmd[1 : 1+len(args)]
	for i, a := range args {
		if got[i] != a {
			t.Errorf("arg[%d] = %q, want %q", i, got[i], a)
		}
	}
}
