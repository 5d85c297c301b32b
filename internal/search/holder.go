package search

import (
	"context"
	"sync"

	"github.com/YauheniMa/witcher-bot/internal/scene"
)

// Holder serves searches from the current engine and lets a rebuilt engine
// take its place. Swap waits for in-flight searches on the old engine, so
// the caller may close the old engine's indexes as soon as Swap returns.
type Holder struct {
	mu     sync.RWMutex
	engine *Engine
}

// NewHolder returns a holder serving e.
func NewHolder(e *Engine) *Holder {
	return &Holder{engine: e}
}

// Engine returns the current engine.
func (h *Holder) Engine() *Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine
}

// Swap installs e and returns the engine it replaced.
func (h *Holder) Swap(e *Engine) *Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.engine
	h.engine = e
	return old
}

// SmartSearch runs SmartSearch on the current engine.
func (h *Holder) SmartSearch(ctx context.Context, query string, opts Options) (*Response, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine.SmartSearch(ctx, query, opts)
}

// Scenes returns the current engine's scene store.
func (h *Holder) Scenes() *scene.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine.Scenes()
}
