package daemon

import (
	"time"

	"github.com/grovetools/pollwatch/pkg/watch"
)

// Watcher names accepted by the /api/watchers endpoints.
const (
	WatcherDrive     = "drive"
	WatcherDirectory = "directory"
)

// WatcherStatus reports whether a watcher is enabled and whether its loop runs.
type WatcherStatus struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}

// Watchers groups the status of both watchers.
type Watchers struct {
	Drive     WatcherStatus `json:"drive"`
	Directory WatcherStatus `json:"directory"`
}

// StateResponse is returned by GET /api/state.
type StateResponse struct {
	Volumes       *watch.VolumeSnapshot    `json:"volumes,omitempty"`
	Directory     *watch.DirectorySnapshot `json:"directory,omitempty"`
	Settings      watch.Settings           `json:"settings"`
	Watchers      Watchers                 `json:"watchers"`
	Notifications uint64                   `json:"notifications"`
	LastUpdate    time.Time                `json:"last_update"`
	StartedAt     time.Time                `json:"started_at"`
}

// DirectoryRequest is the body of POST /api/directory.
type DirectoryRequest struct {
	Path string `json:"path"`
}

// DirectoryResponse reports the monitored directory after a directory
// command. Changed is false when the command was ignored.
type DirectoryResponse struct {
	Changed   bool   `json:"changed"`
	Directory string `json:"directory"`
}

// ConfigResponse is returned by GET and POST /api/config.
type ConfigResponse struct {
	Settings   watch.Settings `json:"settings"`
	Watchers   Watchers       `json:"watchers"`
	ConfigFile string         `json:"config_file,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
}

// ConfigUpdate is the body of POST /api/config. Nil fields are left alone.
type ConfigUpdate struct {
	PollIntervalMs   *int64 `json:"poll_interval_ms,omitempty"`
	DriveWatcher     *bool  `json:"drive_watcher,omitempty"`
	DirectoryWatcher *bool  `json:"directory_watcher,omitempty"`
}
