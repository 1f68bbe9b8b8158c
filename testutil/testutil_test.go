package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	root := t.TempDir()
	Tree(t, root, "photos/", "photos/a.jpg", "notes.txt")

	info, err := os.Stat(filepath.Join(root, "photos"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	data, err := os.ReadFile(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", string(data))
	assert.FileExists(t, filepath.Join(root, "photos", "a.jpg"))
}

func TestConfig(t *testing.T) {
	got := Config([]string{"poll_interval_ms: 20"}, []string{"socket: /tmp/x.sock"})
	assert.Equal(t, "version: \"1.0\"\nwatch:\n  poll_interval_ms: 20\ndaemon:\n  socket: /tmp/x.sock\n", got)
	assert.Equal(t, "version: \"1.0\"\n", Config(nil, nil))
}

func TestIsolate(t *testing.T) {
	root := Isolate(t)
	assert.Equal(t, filepath.Join(root, "home"), os.Getenv("POLLWATCH_HOME"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(filepath.Join(root, "work"))
	require.NoError(t, err)
	actual, err := filepath.EvalSymlinks(wd)
	require.NoError(t, err)
	assert.Equal(t, resolved, actual)
}

func TestSocketDir(t *testing.T) {
	dir := SocketDir(t)
	assert.Less(t, len(filepath.Join(dir, "pollwatch.sock")), 100)
}
