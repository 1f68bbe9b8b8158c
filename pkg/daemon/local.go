package daemon

import (
	"context"

	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/pkg/watch"
)

// LocalClient implements Client without a daemon. Queries take a one-off
// snapshot of the host; commands and streaming need the daemon and fail with
// DAEMON_NOT_RUNNING.
type LocalClient struct {
	volumes    watch.VolumeLister
	dirs       watch.DirectoryLister
	settings   watch.Settings
	socketPath string
}

// NewLocalClient creates a fallback client. settings describe the
// configuration the daemon would run with; socketPath is reported in errors.
func NewLocalClient(volumes watch.VolumeLister, dirs watch.DirectoryLister, settings watch.Settings, socketPath string) *LocalClient {
	return &LocalClient{
		volumes:    volumes,
		dirs:       dirs,
		settings:   settings,
		socketPath: socketPath,
	}
}

// State lists the volumes and the configured directory once.
func (c *LocalClient) State(ctx context.Context) (*StateResponse, error) {
	state := &StateResponse{
		Settings: c.settings,
		Watchers: c.watchers(),
	}

	paths, err := c.volumes.ListVolumes(ctx)
	if err != nil {
		return nil, errors.ListingFailed("drive", "", err)
	}
	state.Volumes = watch.NewVolumeSnapshot(ctx, paths, c.volumes)

	dir := c.settings.MonitoredDirectory
	if dir != "" && c.dirs.IsDirectory(dir) {
		entries, err := c.dirs.ListEntries(ctx, dir)
		if err != nil {
			return nil, errors.ListingFailed("directory", dir, err)
		}
		snap, err := watch.NewDirectorySnapshot(dir, entries, c.dirs)
		if err != nil {
			return nil, err
		}
		state.Directory = snap
	}

	return state, nil
}

func (c *LocalClient) watchers() Watchers {
	return Watchers{
		Drive:     WatcherStatus{Enabled: c.settings.DriveWatcherEnabled},
		Directory: WatcherStatus{Enabled: c.settings.DirectoryWatcherEnabled},
	}
}

func (c *LocalClient) notRunning() error {
	return errors.DaemonNotRunning(c.socketPath)
}

// ChangeDirectory requires the daemon.
func (c *LocalClient) ChangeDirectory(ctx context.Context, path string) (*DirectoryResponse, error) {
	return nil, c.notRunning()
}

// ChangeDirectoryUp requires the daemon.
func (c *LocalClient) ChangeDirectoryUp(ctx context.Context) (*DirectoryResponse, error) {
	return nil, c.notRunning()
}

// Config returns the configured settings with no watcher running.
func (c *LocalClient) Config(ctx context.Context) (*ConfigResponse, error) {
	return &ConfigResponse{Settings: c.settings, Watchers: c.watchers()}, nil
}

// UpdateConfig requires the daemon.
func (c *LocalClient) UpdateConfig(ctx context.Context, update ConfigUpdate) (*ConfigResponse, error) {
	return nil, c.notRunning()
}

// StartWatcher requires the daemon.
func (c *LocalClient) StartWatcher(ctx context.Context, name string) (*Watchers, error) {
	return nil, c.notRunning()
}

// StopWatcher requires the daemon.
func (c *LocalClient) StopWatcher(ctx context.Context, name string) (*Watchers, error) {
	return nil, c.notRunning()
}

// Stream requires the daemon.
func (c *LocalClient) Stream(ctx context.Context) (<-chan watch.Notification, error) {
	return nil, c.notRunning()
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool { return false }

// Close is a no-op for LocalClient.
func (c *LocalClient) Close() error { return nil }

var _ Client = (*LocalClient)(nil)
