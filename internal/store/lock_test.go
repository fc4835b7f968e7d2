package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirLock_LockUnlock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	l := NewDirLock(dir)

	require.NoError(t, l.Lock())
	assert.True(t, l.IsLocked())
	assert.Equal(t, filepath.Join(dir, ".index.lock"), l.Path())

	require.NoError(t, l.Unlock())
	assert.False(t, l.IsLocked())
	require.NoError(t, l.Unlock(), "second unlock is a no-op")
}

func TestDirLock_TryLock_HeldElsewhere(t *testing.T) {
	dir := t.TempDir()
	first := NewDirLock(dir)
	require.NoError(t, first.Lock())
	defer func() { _ = first.Unlock() }()

	second := NewDirLock(dir)
	ok, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, second.IsLocked())
}

func TestDirLock_TryLock_Free(t *testing.T) {
	l := NewDirLock(t.TempDir())
	ok, err := l.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Unlock())
}
