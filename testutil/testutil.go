// Package testutil holds filesystem fixtures shared by pollwatch tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// SocketDir returns a fresh directory for unix sockets. t.TempDir paths can
// exceed the 104/108 byte limit on socket addresses, so it lives directly
// under the system temp dir.
func SocketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pw")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// Isolate points every pollwatch path into a temp dir and changes into an
// empty working directory so no real configuration is picked up. It returns
// the temp root; the working directory is <root>/work.
func Isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("POLLWATCH_HOME", filepath.Join(root, "home"))
	work := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { os.Chdir(wd) })
	return root
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Tree creates a directory fixture under root. Entries ending in "/" are
// directories; everything else is a file whose content is its own name.
func Tree(t *testing.T, root string, entries ...string) {
	t.Helper()
	for _, e := range entries {
		p := filepath.Join(root, filepath.FromSlash(e))
		if strings.HasSuffix(e, "/") {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		WriteFile(t, p, filepath.Base(e))
	}
}

// Config renders a minimal pollwatch.yml with the given watch and daemon
// sections, each given as indented YAML lines.
func Config(watch, daemon []string) string {
	var b strings.Builder
	b.WriteString("version: \"1.0\"\n")
	if len(watch) > 0 {
		b.WriteString("watch:\n")
		for _, l := range watch {
			b.WriteString("  " + l + "\n")
		}
	}
	if len(daemon) > 0 {
		b.WriteString("daemon:\n")
		for _, l := range daemon {
			b.WriteString("  " + l + "\n")
		}
	}
	return b.String()
}
