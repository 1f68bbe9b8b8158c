package watch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/pollwatch/errors"
)

// VolumeID derives a volume identifier from a volume path. By the drive
// letter convention this is the first character of the path.
func VolumeID(path string) string {
	for _, r := range path {
		return string(r)
	}
	return ""
}

// VolumeInfo describes a single mounted volume.
type VolumeInfo struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Label      string `json:"label,omitempty"`
	FSType     string `json:"fs_type,omitempty"`
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// VolumeSnapshot is the volume set observed by one detected change.
type VolumeSnapshot struct {
	SystemVolumeID string                `json:"system_volume_id"`
	Volumes        map[string]VolumeInfo `json:"volumes"`
}

// NewVolumeSnapshot builds a snapshot from the listed volume paths. Keys are
// derived with VolumeID and deduplicated; the first path wins. Metadata that
// cannot be read leaves the key in place with zero capacity.
func NewVolumeSnapshot(ctx context.Context, paths []string, lister VolumeLister) *VolumeSnapshot {
	snap := &VolumeSnapshot{
		SystemVolumeID: lister.SystemVolumeID(),
		Volumes:        make(map[string]VolumeInfo, len(paths)),
	}

	for _, p := range paths {
		id := VolumeID(p)
		if _, ok := snap.Volumes[id]; ok {
			continue
		}
		info, err := lister.VolumeInfo(ctx, p)
		if err != nil {
			info = VolumeInfo{Path: p}
		}
		info.ID = id
		if info.Path == "" {
			info.Path = p
		}
		snap.Volumes[id] = info
	}

	return snap
}

// SystemVolumePath renders a drive-letter system volume as its root, the
// letter followed by ":" and the path separator. A root separator id is
// returned unchanged.
func (s *VolumeSnapshot) SystemVolumePath() string {
	if s.SystemVolumeID == "" || s.SystemVolumeID == separator {
		return s.SystemVolumeID
	}
	return NormalizeDirectory(s.SystemVolumeID + ":")
}

// DirectoryInfo describes a subdirectory of the monitored directory.
type DirectoryInfo struct {
	Name    string    `json:"name"`
	ModTime time.Time `json:"mod_time"`
}

// FileInfo describes a file in the monitored directory.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// DirectorySnapshot is the content of the monitored directory at one point in
// time. Directories and Files never share a key.
type DirectorySnapshot struct {
	RootVolumeID   string                   `json:"root_volume_id"`
	RootPath       string                   `json:"root_path"`
	Directories    map[string]DirectoryInfo `json:"directories"`
	Files          map[string]FileInfo      `json:"files"`
	TotalSizeBytes int64                    `json:"total_size_bytes"`
}

// NewDirectorySnapshot classifies entries into directories and files and sums
// file sizes. Entries removed between listing and inspection are skipped.
func NewDirectorySnapshot(root string, entries []string, lister DirectoryLister) (*DirectorySnapshot, error) {
	snap := &DirectorySnapshot{
		RootVolumeID: VolumeID(root),
		RootPath:     root,
		Directories:  make(map[string]DirectoryInfo),
		Files:        make(map[string]FileInfo),
	}

	for _, path := range entries {
		if _, ok := snap.Directories[path]; ok {
			continue
		}
		if _, ok := snap.Files[path]; ok {
			continue
		}

		info, err := lister.EntryInfo(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.SnapshotFailed(path, err)
		}

		name := filepath.Base(path)
		if info.IsDir {
			snap.Directories[path] = DirectoryInfo{Name: name, ModTime: info.ModTime}
			continue
		}
		snap.Files[path] = FileInfo{Name: name, Size: info.Size, ModTime: info.ModTime}
		snap.TotalSizeBytes += info.Size
	}

	return snap, nil
}

// DirectoryCount returns the number of subdirectories.
func (s *DirectorySnapshot) DirectoryCount() int { return len(s.Directories) }

// FileCount returns the number of files.
func (s *DirectorySnapshot) FileCount() int { return len(s.Files) }

// MarshalJSON adds the derived counts to the encoded snapshot.
func (s *DirectorySnapshot) MarshalJSON() ([]byte, error) {
	type plain DirectorySnapshot
	return json.Marshal(struct {
		*plain
		DirectoryCount int `json:"directory_count"`
		FileCount      int `json:"file_count"`
	}{(*plain)(s), s.DirectoryCount(), s.FileCount()})
}

// Entry is a combined view over a directory or a file.
type Entry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Entries merges directories and files into one map keyed by path.
func (s *DirectorySnapshot) Entries() map[string]Entry {
	out := make(map[string]Entry, len(s.Directories)+len(s.Files))
	for p, d := range s.Directories {
		out[p] = Entry{Name: d.Name, IsDir: true, ModTime: d.ModTime}
	}
	for p, f := range s.Files {
		out[p] = Entry{Name: f.Name, Size: f.Size, ModTime: f.ModTime}
	}
	return out
}
