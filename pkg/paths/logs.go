package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const EnvLoomLogDir = "LOOM_LOG_DIR"

func LoomLogsBaseDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvLoomLogDir)); dir != "" {
		return filepath.Clean(expandHomePath(dir))
	}
	return filepath.Join(".loom", "logs")
}

func expandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}

func LoomLogsBaseDirForWorkdir(workdir string) string {
	base := LoomLogsBaseDir()
	if filepath.IsAbs(base) || strings.TrimSpace(workdir) == "" {
		return base
	}
	return filepath.Join(workdir, base)
}

func LoomLogsDir(identifier string) string {
	base := LoomLogsBaseDir()
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return base
	}
	return filepath.Join(base, identifier)
}
