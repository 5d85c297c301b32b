package embed

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderOllama uses the Ollama HTTP API (default).
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings. No network, weak semantics.
	ProviderStatic ProviderType = "static"
)

// Options selects and tunes an embedder.
type Options struct {
	Provider ProviderType
	Model    string
	Host     string

	BatchSize  int
	Timeout    time.Duration
	MaxRetries int

	// CacheSize bounds the LRU query cache; negative disables it.
	CacheSize int

	QueryPrefix   string
	PassagePrefix string
}

// NewEmbedder creates the configured embedder, wrapped with the query
// cache and instruction prefixes. An explicitly selected provider that is
// unavailable is an error; there is no silent fallback to static vectors,
// since the vector index would then be built from a different model than
// the one queried later.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	var embedder Embedder

	switch ParseProvider(string(opts.Provider)) {
	case ProviderStatic:
		embedder = NewStaticEmbedder()

	default:
		cfg := DefaultOllamaConfig()
		if opts.Host != "" {
			cfg.Host = opts.Host
		}
		if opts.Model != "" {
			cfg.Model = opts.Model
			cfg.FallbackModels = []string{}
		}
		if opts.BatchSize > 0 {
			cfg.BatchSize = opts.BatchSize
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		if opts.MaxRetries > 0 {
			cfg.MaxRetries = opts.MaxRetries
		}

		ollama, err := NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ollama unavailable: %w", err)
		}
		embedder = ollama
	}

	if opts.CacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, opts.CacheSize)
	}

	return NewPrefixedEmbedder(embedder, opts.QueryPrefix, opts.PassagePrefix), nil
}

// ParseProvider converts a string to ProviderType. Unknown names map to Ollama.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

// String returns the provider name.
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names.
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderStatic)}
}

// IsValidProvider checks if a provider name is valid.
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo describes an embedder for status output.
type EmbedderInfo struct {
	Provider   ProviderType `json:"provider"`
	Model      string       `json:"model"`
	Dimensions int          `json:"dimensions"`
	Cached     bool         `json:"cached"`
	Available  bool         `json:"available"`
}

// GetInfo returns information about an embedder, looking through wrappers.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	for {
		switch e := inner.(type) {
		case *PrefixedEmbedder:
			inner = e.inner
			continue
		case *CachedEmbedder:
			info.Cached = true
			inner = e.inner
			continue
		}
		break
	}

	if _, ok := inner.(*OllamaEmbedder); ok {
		info.Provider = ProviderOllama
	} else {
		info.Provider = ProviderStatic
	}
	return info
}
