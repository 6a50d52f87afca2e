package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

// Pipeline defaults.
const (
	DefaultBatchSize         = 100
	DefaultRequestsPerMinute = 60
	DefaultCallTimeout       = 30 * time.Second
	DefaultLRUSize           = 10000
)

// RecordStore is the durable EmbeddingRecord cache consulted before any
// upstream call, keyed by chunk-content hash and model. The vector index
// provides the production implementation.
type RecordStore interface {
	// GetEmbedding returns the cached vector for a content hash, or
	// types.ErrNotFound.
	GetEmbedding(ctx context.Context, contentHash types.Hash, model string) ([]float32, error)

	// PutEmbedding stores a vector keyed by content hash and model.
	PutEmbedding(ctx context.Context, rec types.EmbeddingRecord) error
}

// PipelineConfig configures batching, throttling, and timeouts.
type PipelineConfig struct {
	// BatchSize is the number of texts per upstream call.
	BatchSize int

	// RequestsPerMinute caps upstream calls. When the ceiling is hit,
	// further batches wait rather than fail.
	RequestsPerMinute int

	// CallTimeout bounds each upstream call, converting a hang into a
	// retryable failure.
	CallTimeout time.Duration

	// LRUSize bounds the in-memory cache in front of the record store.
	LRUSize int
}

func (c *PipelineConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.LRUSize <= 0 {
		c.LRUSize = DefaultLRUSize
	}
}

// BatchFailure reports one batch that exhausted its retries. The chunks in
// it are skipped for this run and flagged for retry on the next one;
// successes from other batches are kept.
type BatchFailure struct {
	Hashes []types.Hash
	Err    error
}

// Pipeline batches chunk embedding calls, caches results by content hash,
// and throttles upstream traffic. Process-scoped state (the LRU and the
// limiter) is constructed here explicitly and passed by reference, never
// ambient.
type Pipeline struct {
	emb     Embedder
	records RecordStore // optional
	lru     *Cache
	limiter *rate.Limiter
	cfg     PipelineConfig
	logger  *slog.Logger
}

// NewPipeline wraps an embedder with caching, batching, and rate limiting.
// records may be nil, in which case only the in-memory cache is used.
func NewPipeline(emb Embedder, records RecordStore, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		emb:     emb,
		records: records,
		lru:     NewCache(cfg.LRUSize),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		cfg:     cfg,
		logger:  logger,
	}
}

// Model returns the model identifier of the wrapped embedder.
func (p *Pipeline) Model() string {
	return p.emb.Model()
}

// Dimension returns the embedding dimension of the wrapped embedder.
func (p *Pipeline) Dimension() int {
	return p.emb.Dimension()
}

// Close releases the wrapped embedder.
func (p *Pipeline) Close() error {
	return p.emb.Close()
}

// miss is one distinct content hash that needs an upstream call.
type miss struct {
	hash types.Hash
	text string
}

// EmbedChunks returns a vector for every distinct chunk-content hash.
// Cache hits are served locally; misses go upstream in batches. Batches
// that exhaust their retries are reported as failures, not errors: partial
// success is never rolled back. A context cancellation stops new batches
// from starting but lets the in-flight one complete; completed results are
// returned alongside the context error.
func (p *Pipeline) EmbedChunks(ctx context.Context, chunks []types.Chunk) (map[types.Hash][]float32, []BatchFailure, error) {
	model := p.emb.Model()
	result := make(map[types.Hash][]float32)
	var misses []miss

	for _, c := range chunks {
		if c.ContentHash.IsZero() {
			c.ComputeContentHash()
		}
		if _, done := result[c.ContentHash]; done {
			continue
		}
		if vec, ok := p.lookup(ctx, c.ContentHash, model); ok {
			result[c.ContentHash] = vec
			continue
		}
		misses = append(misses, miss{hash: c.ContentHash, text: c.Content})
	}

	var failures []BatchFailure
	for start := 0; start < len(misses); start += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return result, failures, err
		}

		end := min(start+p.cfg.BatchSize, len(misses))
		batch := misses[start:end]

		if err := p.limiter.Wait(ctx); err != nil {
			return result, failures, err
		}

		embeddings, err := p.callBatch(ctx, batch, model)
		if err != nil {
			p.logger.Warn("embedding batch failed",
				slog.Int("size", len(batch)),
				slog.Any("error", err),
			)
			failures = append(failures, BatchFailure{Hashes: batchHashes(batch), Err: err})
			continue
		}

		for i, emb := range embeddings {
			h := batch[i].hash
			result[h] = emb.Vector
			p.remember(ctx, h, model, emb.Vector)
		}
	}

	return result, failures, nil
}

// EmbedQuery embeds a single query string. The durable record store is
// bypassed (query text is rarely repeated verbatim), but a repeated exact
// query is still served from the in-memory cache.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	model := p.emb.Model()
	key := CacheKey(types.HashString(text), model)
	if emb, ok := p.lru.Get(key); ok {
		return emb.Vector, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	emb, err := p.emb.GenerateEmbedding(callCtx, EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}

	p.lru.Set(key, &Embedding{
		Vector:    emb.Vector,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     model,
	})
	return emb.Vector, nil
}

// callBatch issues one upstream call for a batch, bounded by the call
// timeout. Retry with backoff happens inside the provider.
func (p *Pipeline) callBatch(ctx context.Context, batch []miss, model string) ([]*Embedding, error) {
	texts := make([]string, len(batch))
	for i, m := range batch {
		texts[i] = m.text
	}

	// Cancellation is honored between batches, never mid-call: once a
	// batch is in flight only the call timeout bounds it, and its results
	// are kept.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.CallTimeout)
	defer cancel()

	resp, err := p.emb.GenerateBatch(callCtx, BatchEmbeddingRequest{Texts: texts, Model: model})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		return nil, err
	}
	if len(resp.Embeddings) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			types.ErrProviderFailed, len(resp.Embeddings), len(batch))
	}
	return resp.Embeddings, nil
}

// lookup consults the LRU, then the durable record store.
func (p *Pipeline) lookup(ctx context.Context, contentHash types.Hash, model string) ([]float32, bool) {
	key := CacheKey(contentHash, model)
	if emb, ok := p.lru.Get(key); ok {
		return emb.Vector, true
	}
	if p.records == nil {
		return nil, false
	}
	vec, err := p.records.GetEmbedding(ctx, contentHash, model)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			p.logger.Warn("embedding record lookup failed",
				slog.String("hash", contentHash.Short()),
				slog.Any("error", err),
			)
		}
		return nil, false
	}
	p.lru.Set(key, &Embedding{Vector: vec, Dimension: len(vec), Model: model})
	return vec, true
}

// remember populates both cache levels after a successful upstream call.
// The record write outlives run cancellation: a vector that has been paid
// for upstream is always persisted.
func (p *Pipeline) remember(ctx context.Context, contentHash types.Hash, model string, vector []float32) {
	ctx = context.WithoutCancel(ctx)
	p.lru.Set(CacheKey(contentHash, model), &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Model:     model,
		Hash:      contentHash.String(),
	})
	if p.records == nil {
		return
	}
	err := p.records.PutEmbedding(ctx, types.EmbeddingRecord{
		ContentHash: contentHash,
		Model:       model,
		Vector:      vector,
	})
	if err != nil {
		p.logger.Warn("embedding record store failed",
			slog.String("hash", contentHash.Short()),
			slog.Any("error", err),
		)
	}
}

func batchHashes(batch []miss) []types.Hash {
	hashes := make([]types.Hash, len(batch))
	for i, m := range batch {
		hashes[i] = m.hash
	}
	return hashes
}
