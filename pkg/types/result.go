package types

import "errors"

// SearchResult is a single ranked query result. Ephemeral, produced per
// query; the entry it references belongs to the vector index.
type SearchResult struct {
	Entry *IndexEntry

	// Similarity is the raw vector similarity between the query and the
	// entry, before boosting.
	Similarity float64

	// Boosted is the similarity after the ranking strategy applied its
	// recency or reranking signal. Results are ordered by this score.
	Boosted float64

	// Rank is the 1-based position in the final result set.
	Rank int
}

// Validate checks result internal consistency.
func (r *SearchResult) Validate() error {
	if r.Entry == nil {
		return errors.New("result entry is required")
	}
	if r.Rank < 1 {
		return errors.New("rank must be >= 1")
	}
	if r.Similarity < -1 || r.Similarity > 1 {
		return errors.New("similarity must be between -1 and 1")
	}
	return nil
}
