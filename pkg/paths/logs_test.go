package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoomLogsBaseDirDefaultsToRelativePath(t *testing.T) {
	t.Setenv(EnvLoomLogDir, "")
	if got := LoomLogsBaseDir(); got != filepath.Join(".loom", "logs") {
		t.Fatalf("unexpected base logs dir: %q", got)
	}
}

func TestLoomLogsBaseDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvLoomLogDir, "~/loom/logs")
	want := filepath.Join(home, "loom", "logs")
	if got := LoomLogsBaseDir(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLoomLogsBaseDirSupportsBareHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvLoomLogDir, "~")
	if got := LoomLogsBaseDir(); got != home {
		t.Fatalf("expected %q, got %q", home, got)
	}
}

func TestLoomLogsBaseDirForWorkdirAnchorsRelative(t *testing.T) {
	t.Setenv(EnvLoomLogDir, "relative/logs")
	workdir := t.TempDir()
	want := filepath.Join(workdir, "relative", "logs")
	if got := LoomLogsBaseDirForWorkdir(workdir); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLoomLogsBaseDirForWorkdirDoesNotAnchorAbsolute(t *testing.T) {
	workdir := t.TempDir()
	abs := filepath.Join(os.TempDir(), "loom-logs")
	t.Setenv(EnvLoomLogDir, abs)
	if got := LoomLogsBaseDirForWorkdir(workdir); got != abs {
		t.Fatalf("expected %q, got %q", abs, got)
	}
}
