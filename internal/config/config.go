// Package config loads travelrag configuration from defaults, a user file,
// a project file and TRAVELRAG_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
)

const (
	// ProjectConfigName is the per-corpus config file.
	ProjectConfigName = ".travelrag.yaml"

	// ProjectConfigAltName is accepted when ProjectConfigName is absent.
	ProjectConfigAltName = ".travelrag.yml"

	// DefaultDataDir holds the snapshot and lock file, relative to the project.
	DefaultDataDir = ".travelrag"

	// SnapshotFileName is the SQLite snapshot inside the data dir.
	SnapshotFileName = "index.db"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TRAVELRAG_"
)

// Config is the complete travelrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Reranker   RerankerConfig   `yaml:"reranker" json:"reranker"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
}

// ChunkingConfig configures how corpus files become documents.
type ChunkingConfig struct {
	// Size is the window length in tokens (default: 500).
	Size int `yaml:"size" json:"size"`

	// Overlap is the tokens shared by consecutive windows (default: 100).
	// Must be smaller than Size.
	Overlap int `yaml:"overlap" json:"overlap"`

	// Tokenizer is a tiktoken encoding name or "rune" (default: cl100k_base).
	Tokenizer string `yaml:"tokenizer" json:"tokenizer"`

	// Splitter is travel, markdown or none (default: travel).
	Splitter string `yaml:"splitter" json:"splitter"`
}

// SearchConfig configures retrieval and fusion.
type SearchConfig struct {
	TopK int `yaml:"top_k" json:"top_k"`

	// CandidateMultiplier scales top_k for each retrieval path in hybrid mode (default: 2).
	CandidateMultiplier int `yaml:"candidate_multiplier" json:"candidate_multiplier"`

	// Fusion is rrf (default) or weighted.
	Fusion string `yaml:"fusion" json:"fusion"`

	// RRFConstant is k in 1/(k+rank) (default: 60).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// LexicalWeight and SemanticWeight apply to weighted fusion only.
	// They are expected, not required, to sum to 1.
	LexicalWeight  float64 `yaml:"lexical_weight" json:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	BM25K1 float64 `yaml:"bm25_k1" json:"bm25_k1"`
	BM25B  float64 `yaml:"bm25_b" json:"bm25_b"`

	// LexicalBackend is native (default) or bleve.
	LexicalBackend string `yaml:"lexical_backend" json:"lexical_backend"`

	// VectorBackend is flat (default) or hnsw.
	VectorBackend string `yaml:"vector_backend" json:"vector_backend"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is openai (default), ollama, static or none.
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`

	// Host is the Ollama endpoint.
	Host string `yaml:"host" json:"host"`

	// APIKey falls back to OPENAI_API_KEY.
	APIKey  string `yaml:"api_key" json:"-"`
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Dimensions fixes the static embedder width, or overrides detection.
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	Timeout    string `yaml:"timeout" json:"timeout"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	// CacheSize is the query embedding LRU size; negative disables it.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// RerankerConfig configures LLM relevance reranking.
type RerankerConfig struct {
	// Enabled is a pointer so that an explicit false in a file overrides
	// the default.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Provider is openai (default) or ollama.
	Provider string `yaml:"provider" json:"provider"`

	// Mode is batch (default) or per_item.
	Mode    string `yaml:"mode" json:"mode"`
	Model   string `yaml:"model" json:"model"`
	Host    string `yaml:"host" json:"host"`
	APIKey  string `yaml:"api_key" json:"-"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Timeout string `yaml:"timeout" json:"timeout"`

	// Concurrency bounds in-flight per-item requests.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// RequestsPerSecond caps scoring calls; 0 is unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`

	// MaxFailures consecutive failures open the circuit for ResetTimeout.
	MaxFailures  int    `yaml:"max_failures" json:"max_failures"`
	ResetTimeout string `yaml:"reset_timeout" json:"reset_timeout"`
}

// IsEnabled reports whether reranking is on (default: true).
func (r RerankerConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// PathsConfig locates the corpus and the index data.
type PathsConfig struct {
	// CorpusDir is scanned non-recursively for Pattern (default: ".").
	CorpusDir string `yaml:"corpus_dir" json:"corpus_dir"`

	// DataDir holds index.db (default: .travelrag).
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Pattern selects corpus files (default: *.txt).
	Pattern string `yaml:"pattern" json:"pattern"`
}

// ServerConfig configures logging and the MCP server.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MetricsAddr serves Prometheus /metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// WatchConfig configures the corpus watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Chunking: ChunkingConfig{
			Size:      500,
			Overlap:   100,
			Tokenizer: "cl100k_base",
			Splitter:  "travel",
		},
		Search: SearchConfig{
			TopK:                5,
			CandidateMultiplier: 2,
			Fusion:              "rrf",
			RRFConstant:         60,
			LexicalWeight:       0.5,
			SemanticWeight:      0.5,
			BM25K1:              1.2,
			BM25B:               0.75,
			LexicalBackend:      "native",
			VectorBackend:       "flat",
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "openai",
			Model:     "",
			Timeout:   "30s",
			BatchSize: 64,
			CacheSize: 1000,
		},
		Reranker: RerankerConfig{
			Provider:     "openai",
			Mode:         "batch",
			Timeout:      "30s",
			Concurrency:  4,
			MaxFailures:  5,
			ResetTimeout: "30s",
		},
		Paths: PathsConfig{
			CorpusDir: ".",
			DataDir:   DefaultDataDir,
			Pattern:   "*.txt",
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// GetUserConfigPath returns $XDG_CONFIG_HOME/travelrag/config.yaml, or
// ~/.config/travelrag/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "travelrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "travelrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "travelrag", "config.yaml")
}

// Load resolves configuration for the project in dir, in increasing precedence:
//  1. defaults
//  2. user config (GetUserConfigPath)
//  3. project config (.travelrag.yaml in dir)
//  4. TRAVELRAG_* environment variables
//
// The result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}
	if projectPath := FindProjectConfig(dir); projectPath != "" {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindProjectConfig returns the project config path in dir, or "".
func FindProjectConfig(dir string) string {
	for _, name := range []string{ProjectConfigName, ProjectConfigAltName} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// loadYAML merges the non-zero values of a YAML file into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeFilePermission,
			fmt.Sprintf("failed to read config file %s", path), err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return apperrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies the non-zero values of other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Chunking
	mergeInt(&c.Chunking.Size, other.Chunking.Size)
	mergeInt(&c.Chunking.Overlap, other.Chunking.Overlap)
	mergeString(&c.Chunking.Tokenizer, other.Chunking.Tokenizer)
	mergeString(&c.Chunking.Splitter, other.Chunking.Splitter)

	// Search
	mergeInt(&c.Search.TopK, other.Search.TopK)
	mergeInt(&c.Search.CandidateMultiplier, other.Search.CandidateMultiplier)
	mergeString(&c.Search.Fusion, other.Search.Fusion)
	mergeInt(&c.Search.RRFConstant, other.Search.RRFConstant)
	// Weights merge as a pair so that 1.0/0.0 can be expressed.
	if other.Search.LexicalWeight != 0 || other.Search.SemanticWeight != 0 {
		c.Search.LexicalWeight = other.Search.LexicalWeight
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	mergeFloat(&c.Search.BM25K1, other.Search.BM25K1)
	mergeFloat(&c.Search.BM25B, other.Search.BM25B)
	mergeString(&c.Search.LexicalBackend, other.Search.LexicalBackend)
	mergeString(&c.Search.VectorBackend, other.Search.VectorBackend)

	// Embeddings
	mergeString(&c.Embeddings.Provider, other.Embeddings.Provider)
	mergeString(&c.Embeddings.Model, other.Embeddings.Model)
	mergeString(&c.Embeddings.Host, other.Embeddings.Host)
	mergeString(&c.Embeddings.APIKey, other.Embeddings.APIKey)
	mergeString(&c.Embeddings.BaseURL, other.Embeddings.BaseURL)
	mergeInt(&c.Embeddings.Dimensions, other.Embeddings.Dimensions)
	mergeString(&c.Embeddings.Timeout, other.Embeddings.Timeout)
	mergeInt(&c.Embeddings.BatchSize, other.Embeddings.BatchSize)
	mergeInt(&c.Embeddings.CacheSize, other.Embeddings.CacheSize)

	// Reranker
	if other.Reranker.Enabled != nil {
		v := *other.Reranker.Enabled
		c.Reranker.Enabled = &v
	}
	mergeString(&c.Reranker.Provider, other.Reranker.Provider)
	mergeString(&c.Reranker.Mode, other.Reranker.Mode)
	mergeString(&c.Reranker.Model, other.Reranker.Model)
	mergeString(&c.Reranker.Host, other.Reranker.Host)
	mergeString(&c.Reranker.APIKey, other.Reranker.APIKey)
	mergeString(&c.Reranker.BaseURL, other.Reranker.BaseURL)
	mergeString(&c.Reranker.Timeout, other.Reranker.Timeout)
	mergeInt(&c.Reranker.Concurrency, other.Reranker.Concurrency)
	mergeFloat(&c.Reranker.RequestsPerSecond, other.Reranker.RequestsPerSecond)
	mergeInt(&c.Reranker.MaxFailures, other.Reranker.MaxFailures)
	mergeString(&c.Reranker.ResetTimeout, other.Reranker.ResetTimeout)

	// Paths
	mergeString(&c.Paths.CorpusDir, other.Paths.CorpusDir)
	mergeString(&c.Paths.DataDir, other.Paths.DataDir)
	mergeString(&c.Paths.Pattern, other.Paths.Pattern)

	// Server and watch
	mergeString(&c.Server.LogLevel, other.Server.LogLevel)
	mergeString(&c.Server.MetricsAddr, other.Server.MetricsAddr)
	mergeString(&c.Watch.Debounce, other.Watch.Debounce)
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyEnvOverrides applies TRAVELRAG_* variables. A malformed number is a
// configuration error, not silently ignored.
func (c *Config) applyEnvOverrides() error {
	strVars := map[string]*string{
		"CHUNK_TOKENIZER":     &c.Chunking.Tokenizer,
		"CHUNK_SPLITTER":      &c.Chunking.Splitter,
		"FUSION":              &c.Search.Fusion,
		"LEXICAL_BACKEND":     &c.Search.LexicalBackend,
		"VECTOR_BACKEND":      &c.Search.VectorBackend,
		"EMBEDDINGS_PROVIDER": &c.Embeddings.Provider,
		"EMBEDDINGS_MODEL":    &c.Embeddings.Model,
		"EMBEDDINGS_HOST":     &c.Embeddings.Host,
		"EMBEDDINGS_API_KEY":  &c.Embeddings.APIKey,
		"EMBEDDINGS_BASE_URL": &c.Embeddings.BaseURL,
		"RERANKER_PROVIDER":   &c.Reranker.Provider,
		"RERANKER_MODE":       &c.Reranker.Mode,
		"RERANKER_MODEL":      &c.Reranker.Model,
		"RERANKER_HOST":       &c.Reranker.Host,
		"RERANKER_API_KEY":    &c.Reranker.APIKey,
		"CORPUS_DIR":          &c.Paths.CorpusDir,
		"DATA_DIR":            &c.Paths.DataDir,
		"PATTERN":             &c.Paths.Pattern,
		"LOG_LEVEL":           &c.Server.LogLevel,
		"METRICS_ADDR":        &c.Server.MetricsAddr,
		"WATCH_DEBOUNCE":      &c.Watch.Debounce,
	}
	for name, dst := range strVars {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"CHUNK_SIZE":    &c.Chunking.Size,
		"CHUNK_OVERLAP": &c.Chunking.Overlap,
		"TOP_K":         &c.Search.TopK,
		"RRF_CONSTANT":  &c.Search.RRFConstant,
	}
	for name, dst := range intVars {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return apperrors.ConfigError(fmt.Sprintf("%s%s must be an integer, got %q", EnvPrefix, name, v), err)
			}
			*dst = n
		}
	}

	floatVars := map[string]*float64{
		"LEXICAL_WEIGHT":  &c.Search.LexicalWeight,
		"SEMANTIC_WEIGHT": &c.Search.SemanticWeight,
	}
	for name, dst := range floatVars {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return apperrors.ConfigError(fmt.Sprintf("%s%s must be a number, got %q", EnvPrefix, name, v), err)
			}
			*dst = f
		}
	}

	if v := os.Getenv(EnvPrefix + "RERANKER_ENABLED"); v != "" {
		enabled := strings.EqualFold(v, "true") || v == "1"
		c.Reranker.Enabled = &enabled
	}
	return nil
}

// resolvePaths makes relative corpus and data paths relative to dir.
func (c *Config) resolvePaths(dir string) {
	if dir == "" {
		return
	}
	if !filepath.IsAbs(c.Paths.CorpusDir) {
		c.Paths.CorpusDir = filepath.Join(dir, c.Paths.CorpusDir)
	}
	if !filepath.IsAbs(c.Paths.DataDir) {
		c.Paths.DataDir = filepath.Join(dir, c.Paths.DataDir)
	}
}

// SnapshotPath returns the SQLite snapshot location.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Paths.DataDir, SnapshotFileName)
}

var (
	validFusion          = []string{"rrf", "weighted"}
	validLexicalBackends = []string{"native", "bleve"}
	validVectorBackends  = []string{"flat", "hnsw"}
	validEmbedders       = []string{"openai", "ollama", "static", "none"}
	validScorers         = []string{"openai", "ollama"}
	validRerankModes     = []string{"batch", "per_item"}
	validSplitters       = []string{"travel", "markdown", "none"}
	validLogLevels       = []string{"debug", "info", "warn", "error"}
)

// Validate rejects impossible chunking, unknown enum values and malformed
// durations. Fusion weights are not required to sum to 1.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return invalid("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return invalid("chunking.overlap must be non-negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return invalid("chunking.overlap (%d) must be smaller than chunking.size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Search.TopK <= 0 {
		return invalid("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.CandidateMultiplier <= 0 {
		return invalid("search.candidate_multiplier must be positive, got %d", c.Search.CandidateMultiplier)
	}
	if c.Search.LexicalWeight < 0 || c.Search.SemanticWeight < 0 {
		return invalid("search weights must be non-negative")
	}

	enums := []struct {
		field string
		value string
		valid []string
	}{
		{"chunking.splitter", c.Chunking.Splitter, validSplitters},
		{"search.fusion", c.Search.Fusion, validFusion},
		{"search.lexical_backend", c.Search.LexicalBackend, validLexicalBackends},
		{"search.vector_backend", c.Search.VectorBackend, validVectorBackends},
		{"embeddings.provider", c.Embeddings.Provider, validEmbedders},
		{"reranker.provider", c.Reranker.Provider, validScorers},
		{"reranker.mode", c.Reranker.Mode, validRerankModes},
		{"server.log_level", c.Server.LogLevel, validLogLevels},
	}
	for _, e := range enums {
		if !contains(e.valid, e.value) {
			return invalid("%s must be one of %s, got %q", e.field, strings.Join(e.valid, ", "), e.value)
		}
	}

	durations := map[string]string{
		"embeddings.timeout":     c.Embeddings.Timeout,
		"reranker.timeout":       c.Reranker.Timeout,
		"reranker.reset_timeout": c.Reranker.ResetTimeout,
		"watch.debounce":         c.Watch.Debounce,
	}
	for field, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return invalid("%s is not a duration: %q", field, v)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return apperrors.ConfigError(fmt.Sprintf(format, args...), nil).
		WithSuggestion("fix " + ProjectConfigName + " or run 'travelrag config show'")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ParseDuration parses a validated duration string, returning fallback for "".
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// WriteYAML writes c to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Redacted returns a copy with API keys masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Embeddings.APIKey = redact(c.Embeddings.APIKey)
	out.Reranker.APIKey = redact(c.Reranker.APIKey)
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
