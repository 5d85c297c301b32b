package preflight

import (
	"context"
	"fmt"

	"github.com/YauheniMa/witcher-bot/internal/embed"
	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/index"
	"github.com/YauheniMa/witcher-bot/internal/scene"
)

// CheckCorpus loads the corpus and reports its size.
func (c *Checker) CheckCorpus(path string, allowEmpty bool) CheckResult {
	result := CheckResult{
		Name:     "corpus",
		Required: true,
		Details:  path,
	}

	store, err := scene.LoadJSONL(path, scene.LoadOptions{AllowEmpty: allowEmpty})
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		if e, ok := errors.As(err); ok && e.Suggestion != "" {
			result.Details = e.Suggestion
		}
		return result
	}

	stats := store.Stats()
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d scenes, %d characters, %d locations, %d event tags",
		stats.Scenes, stats.Characters, stats.Locations, stats.EventTags)
	return result
}

// CheckIndexLock reports whether another process holds the on-disk index.
func (c *Checker) CheckIndexLock(indexPath string) CheckResult {
	result := CheckResult{
		Name:     "index_lock",
		Required: true,
	}

	lock := index.NewFileLock(indexPath)
	result.Details = lock.Path()
	ok, err := lock.TryLock()
	switch {
	case err != nil:
		result.Status = StatusWarn
		result.Message = err.Error()
	case !ok:
		result.Status = StatusFail
		result.Message = "index is in use by another witcher process"
	default:
		_ = lock.Unlock()
		result.Status = StatusPass
		result.Message = "free"
	}
	return result
}

// CheckEmbedder connects to the configured embedding provider. Search
// needs it, so failure is critical.
func (c *Checker) CheckEmbedder(ctx context.Context, opts embed.Options) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
	}

	embedder, err := embed.NewEmbedder(ctx, opts)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		result.Details = "Start Ollama or set embeddings.provider to static"
		return result
	}
	defer func() { _ = embedder.Close() }()

	info := embed.GetInfo(ctx, embedder)
	result.Message = fmt.Sprintf("%s (%s, %d dims)", info.Provider, info.Model, info.Dimensions)
	if !info.Available {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}
