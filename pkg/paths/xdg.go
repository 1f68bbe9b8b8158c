// Package paths provides XDG-compliant path resolution for pollwatch.
//
// Resolution order:
// 1. POLLWATCH_HOME (portable root) → $POLLWATCH_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/pollwatch
// 3. Platform defaults → ~/.config/pollwatch, ~/.local/state/pollwatch
package paths

import (
	"os"
	"path/filepath"
)

const appName = "pollwatch"

func home(sub string) string {
	if root := os.Getenv("POLLWATCH_HOME"); root != "" {
		return filepath.Join(root, sub)
	}
	return ""
}

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the directory holding the global pollwatch.yml.
func ConfigDir() string {
	if dir := home("config"); dir != "" {
		return dir
	}
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the directory for runtime state and logs.
func StateDir() string {
	if dir := home("state"); dir != "" {
		return dir
	}
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// RuntimeDir returns the directory for sockets. Uses XDG_RUNTIME_DIR when
// available and falls back to StateDir.
func RuntimeDir() string {
	if dir := home("run"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// GlobalConfigPath returns the path of the global configuration file.
func GlobalConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "pollwatch.yml")
}

// SocketPath returns the path to the daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "pollwatch.sock")
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "pollwatch.pid")
}

// EnsureDirs creates the state and runtime directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{StateDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
