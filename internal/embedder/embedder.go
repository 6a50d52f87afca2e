package embedder

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is one vector with the provenance needed to keep vectors from
// different providers and models apart.
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string
}

// EmbeddingRequest asks for a single vector. Model overrides the
// provider's default when set.
type EmbeddingRequest struct {
	Text  string
	Model string
}

// BatchEmbeddingRequest asks for one vector per text in a single upstream
// call.
type BatchEmbeddingRequest struct {
	Texts []string
	Model string
}

// BatchEmbeddingResponse carries the vectors for a batch request in input
// order.
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder generates vectors for text. Implementations wrap one upstream
// provider; the pipeline layers batching, rate limiting, and caching on
// top.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension is the fixed vector width this provider emits.
	Dimension() int
	Provider() string
	Model() string
	Close() error
}

const defaultCacheSize = 10000

// Cache is the in-memory embedding cache, keyed by CacheKey and bounded by
// LRU eviction.
type Cache struct {
	entries *lru.Cache[string, *Embedding]
}

// NewCache returns a cache holding at most maxLen embeddings. A
// non-positive maxLen falls back to defaultCacheSize.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	entries, _ := lru.New[string, *Embedding](maxLen)
	return &Cache{entries: entries}
}

// Get returns a clone of the cached embedding. Callers are free to mutate
// the returned vector without corrupting the cached one.
func (c *Cache) Get(key string) (*Embedding, bool) {
	emb, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return emb.clone(), true
}

// Set stores an embedding, evicting the least recently used entry when the
// cache is full.
func (c *Cache) Set(key string, emb *Embedding) {
	c.entries.Add(key, emb)
}

// Size returns the number of cached embeddings.
func (c *Cache) Size() int {
	return c.entries.Len()
}

func (e *Embedding) clone() *Embedding {
	out := *e
	out.Vector = make([]float32, len(e.Vector))
	copy(out.Vector, e.Vector)
	return &out
}

// CacheKey builds the cache key for a content hash under a specific model.
// Keying by hash plus model keeps vectors from different models apart.
func CacheKey(contentHash types.Hash, model string) string {
	return contentHash.String() + ":" + model
}

// ValidateRequest rejects a single-text request the provider would refuse.
func ValidateRequest(req EmbeddingRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest rejects a batch containing no texts or an empty
// text. Empty texts embed to nothing useful and some providers error on
// them mid-batch, failing the whole call.
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range req.Texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
