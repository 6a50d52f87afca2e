package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dshills/gitscout-mcp/internal/vecindex"
	"github.com/dshills/gitscout-mcp/pkg/types"
)

const (
	// DefaultLimit is the result count when the request leaves it unset.
	DefaultLimit = 10

	// MaxLimit caps the result count of a single search.
	MaxLimit = 100

	// CandidateMultiplier sizes the retrieval pool relative to the limit,
	// leaving headroom for boosting to reorder past the cut line.
	CandidateMultiplier = 4
)

// QueryEmbedder embeds query text. Satisfied by embedder.Pipeline.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CandidateSource serves nearest-neighbor candidates. Satisfied by
// vecindex.Index.
type CandidateSource interface {
	Query(ctx context.Context, vector []float32, k int) ([]vecindex.Candidate, error)
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query string
	Limit int
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results    []types.SearchResult
	Candidates int
	Strategy   string
	Duration   time.Duration
}

// Engine coordinates query embedding, candidate retrieval, and ranking.
// Read-only: a search never mutates the index.
type Engine struct {
	index    CandidateSource
	embedder QueryEmbedder
	strategy RankStrategy
	logger   *slog.Logger

	// now is swappable for deterministic ranking tests.
	now func() time.Time
}

// NewEngine creates a search engine. A nil strategy selects the default
// StepRecency.
func NewEngine(index CandidateSource, embedder QueryEmbedder, strategy RankStrategy, logger *slog.Logger) *Engine {
	if strategy == nil {
		strategy, _ = NewStrategy("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		index:    index,
		embedder: embedder,
		strategy: strategy,
		logger:   logger,
		now:      time.Now,
	}
}

// Search embeds the query, retrieves a candidate pool, boosts each
// candidate through the ranking strategy, and returns the top results in a
// deterministic order: boosted score descending, ties broken by original
// similarity descending, then path ascending, then chunk sequence.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := e.now()

	if req.Query == "" {
		return nil, errors.New("search query cannot be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	vector, err := e.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}

	candidates, err := e.index.Query(ctx, vector, limit*CandidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("candidate retrieval failed: %w", err)
	}

	results := e.rank(candidates, limit)

	e.logger.Debug("search completed",
		slog.String("strategy", e.strategy.Name()),
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(results)),
	)

	return &SearchResponse{
		Results:    results,
		Candidates: len(candidates),
		Strategy:   e.strategy.Name(),
		Duration:   e.now().Sub(start),
	}, nil
}

func (e *Engine) rank(candidates []vecindex.Candidate, limit int) []types.SearchResult {
	now := e.now()

	results := make([]types.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, types.SearchResult{
			Entry:      c.Entry,
			Similarity: c.Similarity,
			Boosted:    e.strategy.Score(c, now),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Boosted != results[j].Boosted {
			return results[i].Boosted > results[j].Boosted
		}
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Entry.Path != results[j].Entry.Path {
			return results[i].Entry.Path < results[j].Entry.Path
		}
		return results[i].Entry.Chunk.Seq < results[j].Entry.Chunk.Seq
	})

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
