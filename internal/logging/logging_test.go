package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Setup
// =============================================================================

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()

	assert.Equal(t, LogFileName, filepath.Base(path))
	assert.Contains(t, path, ".travelrag")
}

func TestServeConfig_NeverStderr(t *testing.T) {
	cfg := ServeConfig("debug")

	assert.False(t, cfg.WriteToStderr)
	assert.Equal(t, "debug", cfg.Level)
	assert.NotEmpty(t, cfg.FilePath)
}

func TestSetup_WritesJSONAtLevel(t *testing.T) {
	// Given: a file-only logger at warn
	path := filepath.Join(t.TempDir(), "test.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)

	// When: logging below and at the level
	logger.Info("index_built", slog.Int("documents", 3))
	logger.Warn("semantic_unavailable", slog.String("reason", "no key"))
	cleanup()

	// Then: only the warning is written, as JSON
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "index_built")
	assert.Contains(t, string(data), `"msg":"semantic_unavailable"`)
	assert.Contains(t, string(data), `"reason":"no key"`)
}

func TestSetup_NoOutputs(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()

	assert.NotPanics(t, func() { logger.Info("discarded") })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

// =============================================================================
// RotatingWriter
// =============================================================================

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a writer that rotates after 64 bytes and keeps 2 files
	path := filepath.Join(t.TempDir(), "r.log")
	w, err := newRotatingWriter(path, 64, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// When: writing well past the limit
	line := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 6; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}

	// Then: the active file and at most two rotated files exist
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(64))
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	w, err := NewRotatingWriter(path, 1, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), 1, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cc.log")
	w, err := NewRotatingWriter(path, 1, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = fmt.Fprintf(w, "g%d-%d\n", g, i)
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 200)
}

// =============================================================================
// Tail
// =============================================================================

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.log")
	lines := []string{
		`{"time":"2026-01-02T10:00:00Z","level":"DEBUG","msg":"query_embedded","request_id":"a"}`,
		`{"time":"2026-01-02T10:00:01Z","level":"INFO","msg":"search_done","results":5}`,
		`not json at all`,
		`{"time":"2026-01-02T10:00:02Z","level":"WARN","msg":"rerank_degraded","event":"circuit_open"}`,
		`{"time":"2026-01-02T10:00:03Z","level":"ERROR","msg":"index_failed"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestTail_LastN(t *testing.T) {
	entries, err := Tail(writeLog(t), TailOptions{Lines: 2})

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "rerank_degraded", entries[0].Msg)
	assert.Equal(t, "index_failed", entries[1].Msg)
}

func TestTail_LevelFilterKeepsRawLines(t *testing.T) {
	entries, err := Tail(writeLog(t), TailOptions{Level: "warn"})

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "not json at all", entries[0].Format())
	assert.Equal(t, "WARN", entries[1].Level)
}

func TestTail_Pattern(t *testing.T) {
	entries, err := Tail(writeLog(t), TailOptions{Pattern: regexp.MustCompile(`search_`)})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10:00:01.000 INFO  search_done results=5", entries[0].Format())
}

func TestTail_MissingFile(t *testing.T) {
	_, err := Tail(filepath.Join(t.TempDir(), "none.log"), TailOptions{})
	assert.Error(t, err)
}
