package cmd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/YauheniMa/witcher-bot/internal/config"
	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/metrics"
	"github.com/YauheniMa/witcher-bot/internal/search"
	"github.com/YauheniMa/witcher-bot/internal/ui"
	"github.com/YauheniMa/witcher-bot/internal/watcher"
)

// corpusReloader owns the running engine. Reload builds a new engine from
// the corpus and swaps it in; a failed rebuild keeps the running one.
// Rebuilds failing on a retryable error, such as an unreachable embedding
// server, are attempted again with backoff.
type corpusReloader struct {
	holder *search.Holder
	open   func(ctx context.Context, slot int) (*runtime, error)
	retry  errors.RetryConfig

	mu      sync.Mutex
	current *runtime
	closed  bool
}

func newCorpusReloader(cfg *config.Config, m *metrics.Metrics, rt *runtime) *corpusReloader {
	return &corpusReloader{
		holder:  search.NewHolder(rt.engine),
		current: rt,
		retry: errors.RetryConfig{
			MaxRetries:   2,
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
			ShouldRetry:  errors.IsRetryable,
		},
		open: func(ctx context.Context, slot int) (*runtime, error) {
			return openEngineSlot(ctx, cfg, ui.Discard{}, m, slot)
		},
	}
}

// Reload rebuilds the engine and swaps it into the holder.
func (r *corpusReloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	start := time.Now()
	var next *runtime
	err := errors.Retry(ctx, r.retry, func() error {
		var err error
		next, err = r.open(ctx, r.current.slot+1)
		return err
	})
	if err != nil {
		attrs := append(errors.LogAttrs(err), slog.Int("serving_scenes", r.current.scenes.Len()))
		slog.LogAttrs(ctx, slog.LevelError, "corpus_reload_failed", attrs...)
		return err
	}

	old := r.current
	r.holder.Swap(next.engine)
	r.current = next
	if err := old.Close(); err != nil {
		slog.Warn("engine_close_failed", slog.String("error", err.Error()))
	}

	slog.Info("corpus_reloaded",
		slog.Int("scenes", next.scenes.Len()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Watch reloads after every batch of corpus changes until ctx is done.
// A deleted corpus is logged and the running engine kept.
func (r *corpusReloader) Watch(ctx context.Context, w watcher.Watcher) {
	go func() {
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("watcher_failed", slog.String("error", err.Error()))
		}
	}()

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			if corpusRemoved(batch) {
				slog.Warn("corpus_removed", slog.String("path", batch[len(batch)-1].Path))
				continue
			}
			slog.Info("corpus_changed", slog.Int("events", len(batch)))
			_ = r.Reload(ctx)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

func corpusRemoved(batch []watcher.FileEvent) bool {
	return len(batch) > 0 && batch[len(batch)-1].Operation == watcher.OpDelete
}

// Close releases the current engine. Later reloads are ignored.
func (r *corpusReloader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.current.Close()
}
