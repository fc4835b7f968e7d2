package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupConfig_NoFile(t *testing.T) {
	path, err := BackupConfig(filepath.Join(t.TempDir(), ProjectConfigName))

	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackupConfig_KeepsNewest(t *testing.T) {
	// Given: a config file
	path := filepath.Join(t.TempDir(), ProjectConfigName)
	writeFile(t, path, "version: 1\n")

	// When: backing it up more times than MaxBackups
	for i := 0; i < MaxBackups+2; i++ {
		_, err := BackupConfig(path)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	// Then: only MaxBackups remain
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
}

func TestRestoreConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectConfigName)
	writeFile(t, path, "search:\n  top_k: 1\n")
	backup, err := BackupConfig(path)
	require.NoError(t, err)
	writeFile(t, path, "search:\n  top_k: 2\n")

	require.NoError(t, RestoreConfig(path, backup))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "top_k: 1")
}

func TestRestoreConfig_MissingBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectConfigName)
	assert.Error(t, RestoreConfig(path, path+".bak.nope"))
}
