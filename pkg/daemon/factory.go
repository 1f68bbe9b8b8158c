package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/pollwatch/errors"
)

const dialTimeout = 100 * time.Millisecond

// reachable reports whether something accepts connections on socketPath.
func reachable(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Connect returns a RemoteClient, or a DAEMON_NOT_RUNNING error when nothing
// listens on socketPath.
func Connect(socketPath string) (*RemoteClient, error) {
	if !reachable(socketPath) {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	return NewRemoteClient(socketPath), nil
}

// New returns a RemoteClient when the daemon is reachable and fallback
// otherwise. Callers use the same API in both modes.
func New(socketPath string, fallback *LocalClient) Client {
	if client, err := Connect(socketPath); err == nil {
		return client
	}
	return fallback
}
