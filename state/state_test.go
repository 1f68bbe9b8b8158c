package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileIsEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "state.yml"))

	st, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, st)

	v, err := s.GetString(KeyLastDirectory)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yml")
	s := Open(path)

	require.NoError(t, s.Set(KeyLastDirectory, "/data/photos/"))
	require.NoError(t, s.Set("count", 3))

	v, err := s.GetString(KeyLastDirectory)
	require.NoError(t, err)
	assert.Equal(t, "/data/photos/", v)

	v, err = s.GetString("count")
	require.NoError(t, err)
	assert.Empty(t, v, "non-string values read as empty")

	reopened := Open(path)
	v, err = reopened.GetString(KeyLastDirectory)
	require.NoError(t, err)
	assert.Equal(t, "/data/photos/", v)

	require.NoError(t, s.Delete(KeyLastDirectory))
	require.NoError(t, s.Delete("missing"))
	st, err := s.Load()
	require.NoError(t, err)
	assert.NotContains(t, st, KeyLastDirectory)
	assert.Contains(t, st, "count")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - ["), 0o644))

	_, err := Open(path).Load()
	assert.ErrorContains(t, err, "parse state file")
	assert.Error(t, Open(path).Set("k", "v"))
}
