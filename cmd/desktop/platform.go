package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/lyallcooper/hashmaker/internal/logging"
)

const (
	preferredPort = 18090
	engineName    = "hashmaker-engine"
)

// findAvailablePort returns preferred when it is free on localhost, else
// any free port.
func findAvailablePort(preferred int) (int, error) {
	if l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferred)); err == nil {
		l.Close()
		return preferred, nil
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// setDesktopDefaults points the database and settings file into dataDir
// unless they are already set.
func setDesktopDefaults(log *logging.Logger, dataDir string) {
	defaults := map[string]string{
		"HASHMAKER_DB_PATH":       filepath.Join(dataDir, "hashmaker.db"),
		"HASHMAKER_SETTINGS_PATH": filepath.Join(dataDir, "settings.yaml"),
	}
	created := false
	for key, val := range defaults {
		if os.Getenv(key) != "" {
			continue
		}
		if !created {
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				log.Warn().Err(err).Str("dir", dataDir).Msg("could not create data directory")
			}
			created = true
		}
		os.Setenv(key, val)
	}
}

// appDataDir returns the per-user data directory for goos.
func appDataDir(goos string, getenv func(string) string) string {
	home, _ := os.UserHomeDir()
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Hashmaker")
	case "windows":
		return filepath.Join(getenv("APPDATA"), "Hashmaker")
	}
	if xdg := getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "hashmaker")
	}
	return filepath.Join(home, ".local", "share", "hashmaker")
}

// engineCandidates lists where a bundled engine may sit relative to the
// executable directory.
func engineCandidates(goos, execDir string) []string {
	switch goos {
	case "darwin":
		// Hashmaker.app/Contents/MacOS/Hashmaker
		return []string{
			filepath.Join(execDir, "..", "Resources", engineName),
			filepath.Join(execDir, engineName),
		}
	case "windows":
		return []string{filepath.Join(execDir, engineName+".exe")}
	}
	return []string{
		filepath.Join(execDir, engineName),
		filepath.Join(execDir, "..", "lib", "hashmaker", engineName),
	}
}

// findBundledEngine returns the engine to run: override if it exists, then
// a bundled binary, then one on PATH. Empty leaves the choice to config.
func findBundledEngine(goos, override string) string {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
	}

	if execPath, err := os.Executable(); err == nil {
		for _, path := range engineCandidates(goos, filepath.Dir(execPath)) {
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	if path, err := exec.LookPath(engineName); err == nil {
		return path
	}
	return ""
}
