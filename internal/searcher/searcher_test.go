package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gitscout-mcp/internal/vecindex"
	"github.com/dshills/gitscout-mcp/pkg/types"
)

// stubEmbedder returns a fixed query vector.
type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

// stubIndex returns a fixed candidate pool and records the requested k.
type stubIndex struct {
	candidates []vecindex.Candidate
	lastK      int
}

func (s *stubIndex) Query(ctx context.Context, vector []float32, k int) ([]vecindex.Candidate, error) {
	s.lastK = k
	if k < len(s.candidates) {
		return s.candidates[:k], nil
	}
	return s.candidates, nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func candidate(path string, seq int, similarity float64, age time.Duration) vecindex.Candidate {
	chunk := types.Chunk{
		BlobHash:  types.HashString(path),
		Seq:       seq,
		StartLine: 1,
		EndLine:   10,
		Content:   "func example() {}",
	}
	chunk.ComputeContentHash()
	chunk.ComputeTokenCount()
	return vecindex.Candidate{
		Entry: &types.IndexEntry{
			Chunk:        chunk,
			Path:         path,
			CommitSHA:    "abc123",
			Vector:       []float32{1, 0, 0, 0},
			LastModified: testNow.Add(-age),
		},
		Similarity: similarity,
	}
}

func testEngine(index CandidateSource, emb QueryEmbedder, strategy RankStrategy) *Engine {
	e := NewEngine(index, emb, strategy, nil)
	e.now = func() time.Time { return testNow }
	return e
}

const day = 24 * time.Hour

func TestSearchSimilarityGapBeatsSmallRecencyDifference(t *testing.T) {
	// Both entries are under the 90-day cutoff, so the flat-step strategy
	// must not reorder them.
	index := &stubIndex{candidates: []vecindex.Candidate{
		candidate("recent.go", 0, 0.9, 1*day),
		candidate("older.go", 0, 0.85, 30*day),
	}}
	engine := testEngine(index, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "retry loop", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, "recent.go", resp.Results[0].Entry.Path)
	assert.Equal(t, 0.9, resp.Results[0].Boosted)
	assert.Equal(t, "older.go", resp.Results[1].Entry.Path)
	assert.Equal(t, 0.85, resp.Results[1].Boosted)
}

func TestSearchStaleEntryDemoted(t *testing.T) {
	// 0.9 similarity at 120 days boosts to 0.675, below a fresh 0.85.
	index := &stubIndex{candidates: []vecindex.Candidate{
		candidate("stale.go", 0, 0.9, 120*day),
		candidate("fresh.go", 0, 0.85, 1*day),
	}}
	engine := testEngine(index, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "retry loop", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, "fresh.go", resp.Results[0].Entry.Path)
	assert.Equal(t, "stale.go", resp.Results[1].Entry.Path)
	assert.InDelta(t, 0.675, resp.Results[1].Boosted, 1e-9)
	assert.Equal(t, 0.9, resp.Results[1].Similarity, "raw similarity survives boosting")
}

func TestSearchDeterministicTieBreaks(t *testing.T) {
	index := &stubIndex{candidates: []vecindex.Candidate{
		candidate("zeta.go", 0, 0.8, 1*day),
		candidate("alpha.go", 1, 0.8, 1*day),
		candidate("alpha.go", 0, 0.8, 1*day),
	}}
	engine := testEngine(index, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "tie", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, "alpha.go", resp.Results[0].Entry.Path)
	assert.Equal(t, 0, resp.Results[0].Entry.Chunk.Seq)
	assert.Equal(t, "alpha.go", resp.Results[1].Entry.Path)
	assert.Equal(t, 1, resp.Results[1].Entry.Chunk.Seq)
	assert.Equal(t, "zeta.go", resp.Results[2].Entry.Path)
}

func TestSearchRanksAssigned(t *testing.T) {
	index := &stubIndex{candidates: []vecindex.Candidate{
		candidate("a.go", 0, 0.9, 1*day),
		candidate("b.go", 0, 0.8, 1*day),
	}}
	engine := testEngine(index, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "ranked", Limit: 10})
	require.NoError(t, err)
	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
		assert.NoError(t, r.Validate())
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	var candidates []vecindex.Candidate
	for i := 0; i < 20; i++ {
		candidates = append(candidates, candidate("file.go", i, 0.9-float64(i)*0.01, 1*day))
	}
	index := &stubIndex{candidates: candidates}
	engine := testEngine(index, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "many", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 12, index.lastK, "retrieval pool is four times the limit")
}

func TestSearchEmptyIndex(t *testing.T) {
	engine := testEngine(&stubIndex{}, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchEmptyQuery(t *testing.T) {
	engine := testEngine(&stubIndex{}, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	_, err := engine.Search(context.Background(), SearchRequest{Query: ""})
	assert.Error(t, err)
}

func TestSearchEmbeddingUnavailable(t *testing.T) {
	engine := testEngine(&stubIndex{}, &stubEmbedder{err: errors.New("connection refused")}, nil)

	_, err := engine.Search(context.Background(), SearchRequest{Query: "anything"})
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}

func TestSearchDefaultAndMaxLimit(t *testing.T) {
	index := &stubIndex{}
	engine := testEngine(index, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, nil)

	_, err := engine.Search(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit*CandidateMultiplier, index.lastK)

	_, err = engine.Search(context.Background(), SearchRequest{Query: "q", Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit*CandidateMultiplier, index.lastK)
}

func TestSearchStrategySwap(t *testing.T) {
	// Under NopRank the stale high-similarity entry stays first.
	index := &stubIndex{candidates: []vecindex.Candidate{
		candidate("stale.go", 0, 0.9, 120*day),
		candidate("fresh.go", 0, 0.85, 1*day),
	}}
	engine := testEngine(index, &stubEmbedder{vector: []float32{1, 0, 0, 0}}, NopRank{})

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "swap", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "stale.go", resp.Results[0].Entry.Path)
	assert.Equal(t, StrategyNone, resp.Strategy)
}
