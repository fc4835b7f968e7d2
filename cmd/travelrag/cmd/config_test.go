package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/travelrag/internal/config"
	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
)

// =============================================================================
// config show
// =============================================================================

func TestConfigShow_YAMLIncludesOverrides(t *testing.T) {
	dir := setupProject(t)

	out, err := runCLI(t, "--dir", dir, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "provider: static")
	assert.Contains(t, out, "chunking:")
}

func TestConfigShow_MasksAPIKeys(t *testing.T) {
	// Given: an API key supplied through the environment
	dir := setupProject(t)
	t.Setenv("TRAVELRAG_EMBEDDINGS_API_KEY", "sk-travel-secret-123456")

	// When: showing the config as JSON
	out, err := runCLI(t, "--dir", dir, "config", "show", "--json")

	// Then: the key never appears in clear
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-travel-secret-123456")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "embeddings")
}

func TestConfigShow_InvalidEnvFails(t *testing.T) {
	dir := setupProject(t)
	t.Setenv("TRAVELRAG_FUSION", "borda")

	_, err := runCLI(t, "--dir", dir, "config", "show")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
}

// =============================================================================
// config init / restore
// =============================================================================

func TestConfigInit_CreatesProjectConfig(t *testing.T) {
	// Given: a project without a config file
	dir := setupProject(t)

	// When: running config init
	out, err := runCLI(t, "--dir", dir, "config", "init")

	// Then: the defaults are written and load back
	require.NoError(t, err)
	path := filepath.Join(dir, config.ProjectConfigName)
	assert.FileExists(t, path)
	assert.Contains(t, out, "Created")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Chunking.Size)
}

func TestConfigInit_RefusesToOverwrite(t *testing.T) {
	dir := setupProject(t)
	path := filepath.Join(dir, config.ProjectConfigName)
	require.NoError(t, os.WriteFile(path, []byte("search:\n  top_k: 9\n"), 0o644))

	_, err := runCLI(t, "--dir", dir, "config", "init")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "top_k: 9", "existing config is untouched")
}

func TestConfigInit_ForceBacksUpThenRestore(t *testing.T) {
	// Given: a customised project config
	dir := setupProject(t)
	path := filepath.Join(dir, config.ProjectConfigName)
	require.NoError(t, os.WriteFile(path, []byte("search:\n  top_k: 9\n"), 0o644))

	// When: forcing init
	out, err := runCLI(t, "--dir", dir, "config", "init", "--force")

	// Then: the old file is backed up and replaced
	require.NoError(t, err)
	assert.Contains(t, out, "Backed up")
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.TopK)

	// When: restoring the newest backup
	_, err = runCLI(t, "--dir", dir, "config", "restore")

	// Then: the customised value is back
	require.NoError(t, err)
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Search.TopK)
}

func TestConfigInit_UserConfig(t *testing.T) {
	dir := setupProject(t)

	_, err := runCLI(t, "--dir", dir, "config", "init", "--user")

	require.NoError(t, err)
	assert.FileExists(t, config.GetUserConfigPath())
	assert.NoFileExists(t, filepath.Join(dir, config.ProjectConfigName))
}

func TestConfigRestore_NoBackups(t *testing.T) {
	dir := setupProject(t)

	_, err := runCLI(t, "--dir", dir, "config", "restore")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigNotFound))
}

// =============================================================================
// config path
// =============================================================================

func TestConfigPath(t *testing.T) {
	dir := setupProject(t)

	out, err := runCLI(t, "--dir", dir, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, config.GetUserConfigPath())
	assert.Contains(t, out, "project: (none)")

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ProjectConfigName), []byte("{}\n"), 0o644))
	out, err = runCLI(t, "--dir", dir, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, config.ProjectConfigName))
}

func TestConfigInit_WritesCommentedTemplate(t *testing.T) {
	dir := setupProject(t)

	_, err := runCLI(t, "--dir", dir, "config", "init")

	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, config.ProjectConfigName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# travelrag project configuration")
}

func TestConfigInit_EffectiveFreezesOverrides(t *testing.T) {
	// Given: a top_k override from the environment
	dir := setupProject(t)
	t.Setenv("TRAVELRAG_TOP_K", "8")

	// When: writing the effective config
	_, err := runCLI(t, "--dir", dir, "config", "init", "--effective")
	require.NoError(t, err)

	// Then: the override survives without the environment
	t.Setenv("TRAVELRAG_TOP_K", "")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Search.TopK)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}
