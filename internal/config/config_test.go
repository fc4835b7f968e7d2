package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
	"github.com/Aman-CERP/travelrag/internal/search"
)

// isolate points the user config at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, "cl100k_base", cfg.Chunking.Tokenizer)
	assert.Equal(t, "travel", cfg.Chunking.Splitter)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 2, cfg.Search.CandidateMultiplier)
	assert.Equal(t, "rrf", cfg.Search.Fusion)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.InDelta(t, 0.5, cfg.Search.LexicalWeight, 1e-9)
	assert.InDelta(t, 0.5, cfg.Search.SemanticWeight, 1e-9)
	assert.Equal(t, "batch", cfg.Reranker.Mode)
	assert.True(t, cfg.Reranker.IsEnabled())
	assert.Equal(t, "*.txt", cfg.Paths.Pattern)
	assert.Equal(t, DefaultDataDir, cfg.Paths.DataDir)
	assert.NoError(t, cfg.Validate())
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	xdg := isolate(t)
	assert.Equal(t, filepath.Join(xdg, "travelrag", "config.yaml"), GetUserConfigPath())
}

// =============================================================================
// Layering
// =============================================================================

func TestLoad_NoFiles_UsesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, filepath.Join(dir, DefaultDataDir), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(dir, DefaultDataDir, SnapshotFileName), cfg.SnapshotPath())
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config that disagree on top_k
	xdg := isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(xdg, "travelrag", "config.yaml"), `
search:
  top_k: 7
  fusion: weighted
`)
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
search:
  top_k: 9
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: the project wins where it speaks, the user file elsewhere
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Search.TopK)
	assert.Equal(t, "weighted", cfg.Search.Fusion)
}

func TestLoad_AltProjectName(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigAltName), "chunking:\n  size: 300\n  overlap: 50\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search:\n  top_k: 9\n")
	t.Setenv("TRAVELRAG_TOP_K", "3")
	t.Setenv("TRAVELRAG_FUSION", "weighted")
	t.Setenv("TRAVELRAG_LEXICAL_WEIGHT", "0.7")
	t.Setenv("TRAVELRAG_SEMANTIC_WEIGHT", "0.3")
	t.Setenv("TRAVELRAG_RERANKER_ENABLED", "false")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, "weighted", cfg.Search.Fusion)
	assert.InDelta(t, 0.7, cfg.Search.LexicalWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.SemanticWeight, 1e-9)
	assert.False(t, cfg.Reranker.IsEnabled())
}

func TestLoad_EnvMalformedNumber(t *testing.T) {
	isolate(t)
	t.Setenv("TRAVELRAG_TOP_K", "many")

	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
}

func TestLoad_ExplicitFalseDisablesReranker(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "reranker:\n  enabled: false\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.False(t, cfg.Reranker.IsEnabled())
}

func TestLoad_WeightsMergeAsPair(t *testing.T) {
	// Given: a project that wants lexical-only weighting
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search:\n  lexical_weight: 1.0\n")

	cfg, err := Load(dir)

	// Then: the semantic weight is not left at its default
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cfg.Search.LexicalWeight, 1e-9)
	assert.InDelta(t, 0.0, cfg.Search.SemanticWeight, 1e-9)
}

func TestLoad_AbsoluteDataDirKept(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	data := filepath.Join(t.TempDir(), "idx")
	writeFile(t, filepath.Join(dir, ProjectConfigName), "paths:\n  data_dir: "+data+"\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, data, cfg.Paths.DataDir)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search: [unclosed\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"overlap above size", func(c *Config) { c.Chunking.Overlap = 600 }},
		{"zero size", func(c *Config) { c.Chunking.Size = 0 }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero top_k", func(c *Config) { c.Search.TopK = 0 }},
		{"unknown fusion", func(c *Config) { c.Search.Fusion = "borda" }},
		{"unknown lexical backend", func(c *Config) { c.Search.LexicalBackend = "lucene" }},
		{"unknown vector backend", func(c *Config) { c.Search.VectorBackend = "ivf" }},
		{"unknown embedder", func(c *Config) { c.Embeddings.Provider = "cohere" }},
		{"unknown reranker mode", func(c *Config) { c.Reranker.Mode = "pairwise" }},
		{"unknown splitter", func(c *Config) { c.Chunking.Splitter = "html" }},
		{"bad duration", func(c *Config) { c.Reranker.Timeout = "soon" }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "10" }},
		{"negative weight", func(c *Config) { c.Search.LexicalWeight = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
		})
	}
}

func TestValidate_WeightsNeedNotSumToOne(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.LexicalWeight = 0.9
	cfg.Search.SemanticWeight = 0.9

	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// Conversions and output
// =============================================================================

func TestConversions(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.Fusion = "weighted"
	cfg.Search.LexicalWeight = 0.3
	cfg.Search.SemanticWeight = 0.7
	cfg.Reranker.Mode = "per_item"
	cfg.Reranker.Timeout = "5s"
	cfg.Embeddings.Provider = "static"

	engine := cfg.EngineConfig()
	assert.Equal(t, search.FusionWeighted, engine.Fusion)
	assert.InDelta(t, 0.3, engine.Weights.Lexical, 1e-9)
	assert.InDelta(t, 1.2, engine.BM25.K1, 1e-9)
	assert.InDelta(t, 0.25, engine.BM25.Epsilon, 1e-9)

	assert.Equal(t, search.RerankPerItem, cfg.RerankerConfig().Mode)
	assert.Equal(t, 5*time.Second, cfg.LLMConfig().Timeout)
	assert.Equal(t, "static", string(cfg.EmbedConfig().Provider))
	assert.Equal(t, 500, cfg.ChunkOptions().Size)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())
}

func TestParseDuration_Fallback(t *testing.T) {
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("bogus", time.Second))
	assert.Equal(t, 2*time.Minute, ParseDuration("2m", time.Second))
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Search.TopK = 11

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigName)))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 11, loaded.Search.TopK)
}

func TestRedacted_MasksKeys(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.APIKey = "sk-secret"

	red := cfg.Redacted()

	assert.Equal(t, "****", red.Embeddings.APIKey)
	assert.Equal(t, "", red.Reranker.APIKey)
	assert.Equal(t, "sk-secret", cfg.Embeddings.APIKey)
}
