package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/scene/scenetest"
)

func TestHolder_SwapReplacesEngine(t *testing.T) {
	// Given: a holder serving the full corpus
	full := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)
	holder := NewHolder(full)

	// When: a one-scene engine is swapped in
	small := newFixture(t, scenetest.Build(t, []*scene.Scene{{
		ID:         "only",
		Summary:    "Лютик поёт в таверне",
		Text:       "Лютик поёт в таверне",
		Characters: []string{"Лютик"},
	}})).engine(t, DefaultConfig(), nil)
	old := holder.Swap(small)

	// Then: the old engine is returned and lookups use the new one
	assert.Same(t, full, old)
	assert.Same(t, small, holder.Engine())
	assert.Equal(t, 1, holder.Scenes().Len())

	resp, err := holder.SmartSearch(context.Background(), "Лютик", Options{})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "only", resp.Hits[0].Scene.ID)
}

func TestHolder_ConcurrentSearchAndSwap(t *testing.T) {
	a := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)
	b := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)
	holder := NewHolder(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				resp, err := holder.SmartSearch(context.Background(), "битва Геральта под Вызимой", Options{})
				assert.NoError(t, err)
				if resp != nil {
					assert.NotEmpty(t, resp.Hits)
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			holder.Swap(b)
		} else {
			holder.Swap(a)
		}
	}
	wg.Wait()
}
