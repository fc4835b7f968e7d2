package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
)

func TestIndexCmd_BuildsSnapshot(t *testing.T) {
	// Given: a project with three travel documents
	dir := setupProject(t)

	// When: indexing it
	out, err := runCLI(t, "--dir", dir, "index")

	// Then: the summary is printed and the snapshot is written
	require.NoError(t, err)
	assert.Contains(t, out, "from 3 files")
	assert.FileExists(t, filepath.Join(dir, ".travelrag", "index.db"))
}

func TestIndexCmd_JSONReport(t *testing.T) {
	dir := setupProject(t)

	out, err := runCLI(t, "--dir", dir, "index", "--json")

	require.NoError(t, err)
	var report indexReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Files)
	assert.GreaterOrEqual(t, report.Chunks, 3)
	assert.True(t, report.Semantic, "static embedder is always available")
	assert.Positive(t, report.EmbeddingDim)
	assert.Empty(t, report.Skipped)
}

func TestIndexCmd_CorpusDirArgument(t *testing.T) {
	// Given: documents in a directory other than the project
	project := setupProject(t)
	corpus := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "trains.txt"),
		[]byte("TRAINS\nFrecciarossa 9521 Rome to Florence leaves Termini at 08:10."), 0o644))

	// When: indexing with the corpus directory as argument
	out, err := runCLI(t, "--dir", project, "index", corpus, "--json")

	// Then: only that directory is read
	require.NoError(t, err)
	var report indexReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Files)
}

func TestIndexCmd_SkipsInvalidUTF8(t *testing.T) {
	// Given: one file that is not UTF-8
	dir := setupProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.txt"), []byte{0xff, 0xfe, 0xfd}, 0o644))

	// When: indexing
	out, err := runCLI(t, "--dir", dir, "index", "--json")

	// Then: the valid files are indexed and the broken one is reported
	require.NoError(t, err)
	var report indexReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Files)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Path, "broken.txt")
}

func TestIndexCmd_RejectsExtraArgs(t *testing.T) {
	dir := setupProject(t)

	_, err := runCLI(t, "--dir", dir, "index", "a", "b")

	assert.Error(t, err)
}

func TestIndexCmd_EmptyCorpus(t *testing.T) {
	// Given: a corpus directory with no matching files
	project := setupProject(t)
	empty := t.TempDir()

	// When: indexing it
	_, err := runCLI(t, "--dir", project, "index", empty)

	// Then: the run fails and nothing is saved
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyCorpus))
	assert.NoFileExists(t, filepath.Join(project, ".travelrag", "index.db"))
}
