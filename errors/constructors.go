package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *PollwatchError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *PollwatchError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ListingFailed wraps a failure of the volume or directory lister.
func ListingFailed(watcher, path string, err error) *PollwatchError {
	e := Wrap(err, ErrCodeListingFailed, fmt.Sprintf("%s listing failed", watcher)).
		WithDetail("watcher", watcher)
	if path != "" {
		e = e.WithDetail("path", path)
	}
	return e
}

// SnapshotFailed wraps a failure while gathering snapshot metadata.
func SnapshotFailed(path string, err error) *PollwatchError {
	return Wrap(err, ErrCodeSnapshotFailed, fmt.Sprintf("failed to build snapshot for %s", path)).
		WithDetail("path", path)
}

// DaemonNotRunning is returned by clients when no daemon answers on the socket.
func DaemonNotRunning(socket string) *PollwatchError {
	return New(ErrCodeDaemonNotRunning, "pollwatch daemon is not running").
		WithDetail("socket", socket)
}
