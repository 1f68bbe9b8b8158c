package watch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the notifications emitted by the controller.
type Kind string

const (
	KindVolumesChanged           Kind = "volumes_changed"
	KindDirectoryContentsChanged Kind = "directory_contents_changed"
	KindDirectorySwitched        Kind = "directory_switched"
	KindConfigChanged            Kind = "config_changed"
)

// Setting names a mutable controller setting.
type Setting string

const (
	SettingPollInterval            Setting = "poll_interval"
	SettingDriveWatcherEnabled     Setting = "drive_watcher_enabled"
	SettingDirectoryWatcherEnabled Setting = "directory_watcher_enabled"
	SettingMonitoredDirectory      Setting = "monitored_directory"
)

// SettingChange carries the new value of a setting.
type SettingChange struct {
	Name  Setting     `json:"name"`
	Value interface{} `json:"value"`
}

// Notification is a single event delivered to a Sink. Exactly one of
// Volumes, Directory or Setting is set, matching Kind.
type Notification struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	Time      time.Time          `json:"time"`
	Volumes   *VolumeSnapshot    `json:"volumes,omitempty"`
	Directory *DirectorySnapshot `json:"directory,omitempty"`
	Setting   *SettingChange     `json:"setting,omitempty"`
}

func newNotification(kind Kind) Notification {
	return Notification{
		ID:   uuid.NewString(),
		Kind: kind,
		Time: time.Now(),
	}
}

// Sink receives notifications. Notify is called from the emitting loop's
// goroutine, or from the caller of a controller command; a sink that needs a
// particular execution context re-dispatches on its own.
type Sink interface {
	Notify(n Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(n Notification) error

// Notify calls f(n).
func (f SinkFunc) Notify(n Notification) error { return f(n) }

// deliver hands n to sink, converting a panic into an error.
func deliver(sink Sink, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return sink.Notify(n)
}
