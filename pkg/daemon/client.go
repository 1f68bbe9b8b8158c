// Package daemon provides a client for the pollwatch daemon. If the daemon is
// running, calls go over its unix socket; otherwise a local client answers
// read-only queries with a one-off snapshot of the host.
package daemon

import (
	"context"

	"github.com/grovetools/pollwatch/pkg/watch"
)

// Client is implemented by RemoteClient (daemon API) and LocalClient
// (in-process fallback).
type Client interface {
	// State returns the latest volumes, directory contents and settings.
	State(ctx context.Context) (*StateResponse, error)

	// ChangeDirectory asks the daemon to monitor path.
	ChangeDirectory(ctx context.Context, path string) (*DirectoryResponse, error)

	// ChangeDirectoryUp asks the daemon to monitor the parent directory.
	ChangeDirectoryUp(ctx context.Context) (*DirectoryResponse, error)

	// Config returns the running settings.
	Config(ctx context.Context) (*ConfigResponse, error)

	// UpdateConfig applies the non-nil fields of update.
	UpdateConfig(ctx context.Context, update ConfigUpdate) (*ConfigResponse, error)

	// StartWatcher and StopWatcher control the named watcher loop.
	StartWatcher(ctx context.Context, name string) (*Watchers, error)
	StopWatcher(ctx context.Context, name string) (*Watchers, error)

	// Stream delivers notifications until ctx is cancelled or the
	// connection is lost, then closes the channel.
	Stream(ctx context.Context) (<-chan watch.Notification, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}
