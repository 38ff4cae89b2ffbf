package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.d", "99-test.rules")

	require.NoError(t, WriteAtomic(path, []byte("first\n"), 0o644))
	require.NoError(t, WriteAtomic(path, []byte("second\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestTryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	first, err := TryLock(path)
	require.NoError(t, err)

	// flock locks belong to the open file description, so a second open
	// in the same process conflicts just like another process would.
	_, err = TryLock(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	second, err := TryLock(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())

	var nilLock *Lock
	assert.NoError(t, nilLock.Release())
}
