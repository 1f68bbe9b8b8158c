// Package hostfs implements the watch listers against the local machine.
package hostfs

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/shirou/gopsutil/v4/disk"
)

// Volumes lists mounted volumes using gopsutil.
type Volumes struct {
	// All includes pseudo and duplicate filesystems.
	All bool

	mu sync.Mutex
	// devices maps mount points to devices as of the last ListVolumes.
	devices map[string]string
}

// NewVolumes returns a lister over physical partitions.
func NewVolumes() *Volumes {
	return &Volumes{}
}

// ListVolumes returns the mount point of every partition.
func (v *Volumes) ListVolumes(ctx context.Context) ([]string, error) {
	parts, err := disk.PartitionsWithContext(ctx, v.All)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(parts))
	devices := make(map[string]string, len(parts))
	for _, p := range parts {
		if p.Mountpoint == "" {
			continue
		}
		paths = append(paths, p.Mountpoint)
		if _, ok := devices[p.Mountpoint]; !ok {
			devices[p.Mountpoint] = p.Device
		}
	}

	v.mu.Lock()
	v.devices = devices
	v.mu.Unlock()
	return paths, nil
}

// VolumeInfo returns usage and label information for the volume at path. The
// label is best effort.
func (v *Volumes) VolumeInfo(ctx context.Context, path string) (watch.VolumeInfo, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return watch.VolumeInfo{}, err
	}
	info := watch.VolumeInfo{
		ID:         watch.VolumeID(path),
		Path:       path,
		FSType:     usage.Fstype,
		TotalBytes: usage.Total,
		FreeBytes:  usage.Free,
	}
	if dev := v.device(ctx, path); dev != "" {
		if label, err := disk.LabelWithContext(ctx, filepath.Base(dev)); err == nil {
			info.Label = label
		}
	}
	return info, nil
}

// device returns the device mounted at mountpoint from the partitions read by
// the last ListVolumes, reading the partition table only on a miss.
func (v *Volumes) device(ctx context.Context, mountpoint string) string {
	v.mu.Lock()
	dev, ok := v.devices[mountpoint]
	v.mu.Unlock()
	if ok {
		return dev
	}

	parts, err := disk.PartitionsWithContext(ctx, v.All)
	if err != nil {
		return ""
	}
	for _, p := range parts {
		if p.Mountpoint == mountpoint {
			return p.Device
		}
	}
	return ""
}

// SystemVolumeID returns the id of the volume holding the operating system:
// the drive letter from SystemDrive when set, otherwise the root separator.
func (v *Volumes) SystemVolumeID() string {
	if drive := os.Getenv("SystemDrive"); drive != "" {
		return watch.VolumeID(drive)
	}
	return string(filepath.Separator)
}
