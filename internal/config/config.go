// Package config loads the layered witcher configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YauheniMa/witcher-bot/internal/errors"
)

// Project config file names, in lookup order.
var projectConfigNames = []string{".witcher.yaml", ".witcher.yml"}

// Config is the complete witcher configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Corpus     CorpusConfig     `yaml:"corpus" json:"corpus"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Lexical    LexicalConfig    `yaml:"lexical" json:"lexical"`
	Semantic   SemanticConfig   `yaml:"semantic" json:"semantic"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// CorpusConfig locates the scene corpus.
type CorpusConfig struct {
	// Path is the JSONL file with one scene per line.
	Path string `yaml:"path" json:"path"`
	// AllowEmpty accepts a corpus with zero scenes (tests, dry runs).
	AllowEmpty bool `yaml:"allow_empty" json:"allow_empty"`
}

// SearchConfig tunes smart_search.
type SearchConfig struct {
	TopKLexical  int `yaml:"topk_bm25" json:"topk_bm25"`
	TopKSemantic int `yaml:"topk_semantic" json:"topk_semantic"`

	// MinSemanticScore drops semantic hits below this cosine similarity.
	// -1 keeps every hit.
	MinSemanticScore float64 `yaml:"min_semantic_score" json:"min_semantic_score"`

	// SimilarityWeight adds weight × fused similarity to the entity score.
	// 0 ranks by entity overlap alone.
	SimilarityWeight float64 `yaml:"similarity_weight" json:"similarity_weight"`

	RRFConstant    int     `yaml:"rrf_constant" json:"rrf_constant"`
	LexicalWeight  float64 `yaml:"lexical_weight" json:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// SnippetWords truncates scene text in tool and CLI output.
	SnippetWords int `yaml:"snippet_words" json:"snippet_words"`
}

// LexicalConfig selects the BM25 backend.
type LexicalConfig struct {
	// Backend: "okapi", "bleve" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
	// IndexDir holds bleve/sqlite files. Empty keeps them in memory.
	IndexDir string  `yaml:"index_dir" json:"index_dir"`
	K1       float64 `yaml:"k1" json:"k1"`
	B        float64 `yaml:"b" json:"b"`
	Epsilon  float64 `yaml:"epsilon" json:"epsilon"`
}

// SemanticConfig selects the vector backend.
type SemanticConfig struct {
	// Backend: "flat" or "hnsw".
	Backend      string `yaml:"backend" json:"backend"`
	HNSWM        int    `yaml:"hnsw_m" json:"hnsw_m"`
	HNSWEfSearch int    `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider: "ollama" or "static".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	Timeout    string `yaml:"timeout" json:"timeout"`
	MaxRetries int    `yaml:"max_retries" json:"max_retries"`
	// CacheSize bounds the query embedding cache. Negative disables it.
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	QueryPrefix   string `yaml:"query_prefix" json:"query_prefix"`
	PassagePrefix string `yaml:"passage_prefix" json:"passage_prefix"`
}

// ExtractionConfig selects the entity recognizer.
type ExtractionConfig struct {
	// Recognizer: "gazetteer", "llm", "chain" (gazetteer then llm) or "none".
	Recognizer string `yaml:"recognizer" json:"recognizer"`
	LLMModel   string `yaml:"llm_model" json:"llm_model"`
	LLMHost    string `yaml:"llm_host" json:"llm_host"`
	// Timeout bounds one recognizer call.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// LoggingConfig configures the slog file logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	Stderr    bool   `yaml:"stderr" json:"stderr"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Transport is "stdio".
	Transport string `yaml:"transport" json:"transport"`
	// MetricsAddr serves /metrics when set, e.g. "127.0.0.1:9464".
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// Watch rebuilds the engine when the corpus file changes.
	Watch bool `yaml:"watch" json:"watch"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Path: "scenes.jsonl",
		},
		Search: SearchConfig{
			TopKLexical:      30,
			TopKSemantic:     30,
			MinSemanticScore: -1,
			SimilarityWeight: 0,
			RRFConstant:      60,
			LexicalWeight:    0.5,
			SemanticWeight:   0.5,
			SnippetWords:     120,
		},
		Lexical: LexicalConfig{
			Backend: "okapi",
			K1:      1.5,
			B:       0.75,
			Epsilon: 0.25,
		},
		Semantic: SemanticConfig{
			Backend:      "flat",
			HNSWM:        16,
			HNSWEfSearch: 64,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "bge-m3",
			OllamaHost: "http://localhost:11434",
			BatchSize:  32,
			Timeout:    "60s",
			MaxRetries: 3,
			CacheSize:  1000,
		},
		Extraction: ExtractionConfig{
			Recognizer: "gazetteer",
			LLMModel:   "qwen3:0.6b",
			Timeout:    "10s",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Server: ServerConfig{
			Transport: "stdio",
		},
	}
}

// GetUserConfigPath returns the user/global configuration file:
//   - $XDG_CONFIG_HOME/witcher/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/witcher/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "witcher", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "witcher", "config.yaml")
	}
	return filepath.Join(home, ".config", "witcher", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for dir. Precedence, lowest first:
//  1. Defaults
//  2. User config ($XDG_CONFIG_HOME/witcher/config.yaml)
//  3. Project config (.witcher.yaml or .witcher.yml in dir)
//  4. WITCHER_* environment variables
//
// The result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// A relative corpus path is relative to the project directory.
	if cfg.Corpus.Path != "" && !filepath.IsAbs(cfg.Corpus.Path) {
		cfg.Corpus.Path = filepath.Join(dir, cfg.Corpus.Path)
	}
	return cfg, nil
}

// loadFromFile layers the first project config file found in dir.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range projectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path onto c. Keys absent from the file keep their current
// values, and explicit zeros (similarity_weight: 0) are honored.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.ErrCodeConfigNotFound, "failed to read config file", err).
			WithDetail("path", path)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("check the YAML syntax and field types")
	}
	return nil
}

// envOverride maps one WITCHER_* variable onto a field.
type envOverride struct {
	name  string
	apply func(c *Config, v string) error
}

var envOverrides = []envOverride{
	{"WITCHER_CORPUS_PATH", func(c *Config, v string) error { c.Corpus.Path = v; return nil }},
	{"WITCHER_CORPUS_ALLOW_EMPTY", func(c *Config, v string) error { return parseBool(v, &c.Corpus.AllowEmpty) }},
	{"WITCHER_TOPK_BM25", func(c *Config, v string) error { return parseInt(v, &c.Search.TopKLexical) }},
	{"WITCHER_TOPK_SEMANTIC", func(c *Config, v string) error { return parseInt(v, &c.Search.TopKSemantic) }},
	{"WITCHER_MIN_SEMANTIC_SCORE", func(c *Config, v string) error { return parseFloat(v, &c.Search.MinSemanticScore) }},
	{"WITCHER_SIMILARITY_WEIGHT", func(c *Config, v string) error { return parseFloat(v, &c.Search.SimilarityWeight) }},
	{"WITCHER_LEXICAL_BACKEND", func(c *Config, v string) error { c.Lexical.Backend = v; return nil }},
	{"WITCHER_LEXICAL_INDEX_DIR", func(c *Config, v string) error { c.Lexical.IndexDir = v; return nil }},
	{"WITCHER_VECTOR_BACKEND", func(c *Config, v string) error { c.Semantic.Backend = v; return nil }},
	{"WITCHER_EMBEDDINGS_PROVIDER", func(c *Config, v string) error { c.Embeddings.Provider = v; return nil }},
	{"WITCHER_EMBEDDINGS_MODEL", func(c *Config, v string) error { c.Embeddings.Model = v; return nil }},
	{"WITCHER_OLLAMA_HOST", func(c *Config, v string) error { c.Embeddings.OllamaHost = v; return nil }},
	{"WITCHER_RECOGNIZER", func(c *Config, v string) error { c.Extraction.Recognizer = v; return nil }},
	{"WITCHER_LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"WITCHER_METRICS_ADDR", func(c *Config, v string) error { c.Server.MetricsAddr = v; return nil }},
	{"WITCHER_WATCH", func(c *Config, v string) error { return parseBool(v, &c.Server.Watch) }},
}

// applyEnvOverrides applies WITCHER_* variables. A malformed number is an
// error rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(c, strings.TrimSpace(v)); err != nil {
			return errors.ConfigError("invalid environment override", err).
				WithDetail("variable", o.name)
		}
	}
	return nil
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseFloat(s string, dst *float64) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func parseBool(s string, dst *bool) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Search.TopKLexical < 0 {
		return invalid("search.topk_bm25 must be non-negative, got %d", c.Search.TopKLexical)
	}
	if c.Search.TopKSemantic < 0 {
		return invalid("search.topk_semantic must be non-negative, got %d", c.Search.TopKSemantic)
	}
	if c.Search.MinSemanticScore < -1 || c.Search.MinSemanticScore > 1 {
		return invalid("search.min_semantic_score must be between -1 and 1, got %g", c.Search.MinSemanticScore)
	}
	if c.Search.SimilarityWeight < 0 {
		return invalid("search.similarity_weight must be non-negative, got %g", c.Search.SimilarityWeight)
	}
	if c.Search.LexicalWeight < 0 || c.Search.SemanticWeight < 0 {
		return invalid("search weights must be non-negative")
	}
	if c.Search.RRFConstant < 0 {
		return invalid("search.rrf_constant must be non-negative, got %d", c.Search.RRFConstant)
	}

	if !oneOf(c.Lexical.Backend, "okapi", "bleve", "sqlite") {
		return invalid("lexical.backend must be 'okapi', 'bleve' or 'sqlite', got %q", c.Lexical.Backend)
	}
	if c.Lexical.K1 < 0 || c.Lexical.B < 0 || c.Lexical.B > 1 {
		return invalid("lexical.k1 must be >= 0 and lexical.b within [0, 1]")
	}
	if !oneOf(c.Semantic.Backend, "flat", "hnsw") {
		return invalid("semantic.backend must be 'flat' or 'hnsw', got %q", c.Semantic.Backend)
	}

	if !oneOf(c.Embeddings.Provider, "ollama", "static") {
		return invalid("embeddings.provider must be 'ollama' or 'static', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.BatchSize < 0 {
		return invalid("embeddings.batch_size must be non-negative, got %d", c.Embeddings.BatchSize)
	}
	if _, err := parseDuration(c.Embeddings.Timeout); err != nil {
		return invalid("embeddings.timeout: %v", err)
	}

	if !oneOf(c.Extraction.Recognizer, "gazetteer", "llm", "chain", "none") {
		return invalid("extraction.recognizer must be 'gazetteer', 'llm', 'chain' or 'none', got %q", c.Extraction.Recognizer)
	}
	if _, err := parseDuration(c.Extraction.Timeout); err != nil {
		return invalid("extraction.timeout: %v", err)
	}

	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level)
	}
	if c.Server.Transport != "stdio" {
		return invalid("server.transport must be 'stdio', got %q", c.Server.Transport)
	}

	return nil
}

// EmbeddingsTimeout returns the parsed embeddings.timeout (0 if unset).
func (c *Config) EmbeddingsTimeout() time.Duration {
	d, _ := parseDuration(c.Embeddings.Timeout)
	return d
}

// ExtractionTimeout returns the parsed extraction.timeout (0 if unset).
func (c *Config) ExtractionTimeout() time.Duration {
	d, _ := parseDuration(c.Extraction.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
