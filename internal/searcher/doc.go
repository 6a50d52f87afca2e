// Package searcher answers natural-language queries against the vector
// index. A search embeds the query text, retrieves a candidate pool larger
// than the requested limit, boosts each candidate's similarity by a
// pluggable ranking strategy, and returns a deterministically ordered,
// truncated result list.
//
// Ranking strategies implement RankStrategy and are selected by
// configuration name; the engine never branches on strategy identity. The
// default StepRecency strategy keeps full similarity for recently modified
// entries and applies a flat multiplier to stale ones, so a large
// similarity gap is never inverted by a small recency difference.
//
// Searches are read-only. If the embedding capability is unreachable the
// whole search fails with types.ErrEmbeddingUnavailable; there is no
// degraded keyword fallback.
package searcher
