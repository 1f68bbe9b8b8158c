package watch

import (
	"path/filepath"
	"strings"
)

const separator = string(filepath.Separator)

// NormalizeDirectory returns dir with a trailing path separator appended when
// it lacks one, so a bare drive letter such as "C:" becomes a drive root.
func NormalizeDirectory(dir string) string {
	if dir == "" {
		return ""
	}
	if strings.HasSuffix(dir, separator) {
		return dir
	}
	return dir + separator
}

// ParentDirectory strips the last segment of dir and returns the parent with a
// trailing separator. It returns "" when dir has no parent.
func ParentDirectory(dir string) string {
	trimmed := strings.TrimRight(dir, separator)
	if trimmed == "" {
		return ""
	}
	i := strings.LastIndex(trimmed, separator)
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}
