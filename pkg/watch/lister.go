package watch

import (
	"context"
	"time"
)

// VolumeLister enumerates the logical volumes mounted on the host.
type VolumeLister interface {
	// ListVolumes returns the path of every mounted volume.
	ListVolumes(ctx context.Context) ([]string, error)

	// VolumeInfo returns capacity metadata for the volume mounted at path.
	VolumeInfo(ctx context.Context, path string) (VolumeInfo, error)

	// SystemVolumeID returns the identifier of the volume hosting the OS.
	SystemVolumeID() string
}

// DirectoryLister lists the immediate children of a directory.
type DirectoryLister interface {
	// ListEntries returns the full path of every file and subdirectory
	// directly inside dir.
	ListEntries(ctx context.Context, dir string) ([]string, error)

	// EntryInfo returns metadata for a single entry.
	EntryInfo(path string) (EntryInfo, error)

	// IsDirectory reports whether path names an existing directory.
	IsDirectory(path string) bool
}

// EntryInfo is the metadata the core needs about a directory entry.
type EntryInfo struct {
	IsDir   bool
	Size    int64
	ModTime time.Time
}
