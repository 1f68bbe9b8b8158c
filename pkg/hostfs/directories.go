package hostfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/moby/patternmatcher"
)

// Directories lists directory children from the local filesystem.
type Directories struct {
	ignore *patternmatcher.PatternMatcher
}

// NewDirectories creates a lister. Entries whose base name matches one of the
// ignore patterns are left out of every listing.
func NewDirectories(ignore []string) (*Directories, error) {
	d := &Directories{}
	if len(ignore) == 0 {
		return d, nil
	}
	pm, err := patternmatcher.New(ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore patterns: %w", err)
	}
	d.ignore = pm
	return d, nil
}

// ValidatePatterns reports the first ignore pattern that cannot be compiled.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		pm, err := patternmatcher.New([]string{p})
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
		// Compilation is lazy; force it.
		if _, err := pm.MatchesOrParentMatches("path"); err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	return nil
}

// ListEntries returns the joined paths of dir's children, subdirectories
// first and then files, each group in directory order.
func (d *Directories) ListEntries(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dirs, files []string
	for _, e := range entries {
		if d.ignored(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
	}
	return append(dirs, files...), nil
}

func (d *Directories) ignored(name string) bool {
	if d.ignore == nil {
		return false
	}
	matched, err := d.ignore.MatchesOrParentMatches(name)
	return err == nil && matched
}

// EntryInfo stats path. Symlinks are followed; a dangling symlink is
// reported as a file with the size of the link itself.
func (d *Directories) EntryInfo(path string) (watch.EntryInfo, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		fi, err = os.Lstat(path)
	}
	if err != nil {
		return watch.EntryInfo{}, err
	}
	info := watch.EntryInfo{IsDir: fi.IsDir(), ModTime: fi.ModTime()}
	if !fi.IsDir() {
		info.Size = fi.Size()
	}
	return info, nil
}

// IsDirectory reports whether path is an existing directory.
func (d *Directories) IsDirectory(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
