package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewCache(10)

	key := CacheKey(types.HashString("hello"), "test-model")
	cache.Set(key, &Embedding{
		Vector:    []float32{0.1, 0.2, 0.3},
		Dimension: 3,
		Model:     "test-model",
	})

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Vector)
	assert.Equal(t, 1, cache.Size())

	_, ok = cache.Get(CacheKey(types.HashString("other"), "test-model"))
	assert.False(t, ok)
}

func TestCacheReturnsCopy(t *testing.T) {
	cache := NewCache(10)

	key := CacheKey(types.HashString("hello"), "test-model")
	cache.Set(key, &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3})

	first, ok := cache.Get(key)
	require.True(t, ok)
	first.Vector[0] = 99

	second, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, float32(1), second.Vector[0], "caller mutation must not reach the cache")
}

func TestCacheKeyIncludesModel(t *testing.T) {
	h := types.HashString("same content")
	assert.NotEqual(t, CacheKey(h, "model-a"), CacheKey(h, "model-b"))
}

func TestCacheLRUEviction(t *testing.T) {
	cache := NewCache(2)

	cache.Set("a", &Embedding{Vector: []float32{1}})
	cache.Set("b", &Embedding{Vector: []float32{2}})
	cache.Set("c", &Embedding{Vector: []float32{3}})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestLocalProviderDeterministic(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	first, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() {}"})
	require.NoError(t, err)
	second, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() {}"})
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Len(t, first.Vector, p.Dimension())

	other, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "package chunker"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Vector, other.Vector)
}

func TestLocalProviderNormalized(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)
	defer p.Close()

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "normalize me"})
	require.NoError(t, err)

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestLocalProviderEmptyText(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)
	defer p.Close()

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestDetectProvider(t *testing.T) {
	t.Setenv("GITSCOUT_EMBEDDING_PROVIDER", "")
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvJinaAPIKey, "")
	assert.Equal(t, "local", DetectProvider())

	t.Setenv(EnvJinaAPIKey, "jina-key")
	assert.Equal(t, "jina", DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	assert.Equal(t, "openai", DetectProvider())
}
