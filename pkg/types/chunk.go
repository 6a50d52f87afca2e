package types

import "errors"

// TokensPerChar is the deterministic token-count heuristic: roughly four
// characters per token for both prose and source code.
const TokensPerChar = 4

// EstimateTokens estimates the token count of a text span.
func EstimateTokens(text string) int {
	return len(text) / TokensPerChar
}

// Chunk is a contiguous text span of a blob, the unit that gets embedded
// and searched. Chunks from one blob are produced in non-decreasing
// start-line order and may overlap by a configured window but never skip
// content.
type Chunk struct {
	// BlobHash identifies the owning blob. The chunk references it by
	// hash; it does not own the blob bytes.
	BlobHash Hash

	// Seq is the chunk's sequence index within its blob, starting at 0.
	Seq int

	// StartLine and EndLine are 1-based, inclusive line numbers in the
	// blob's content.
	StartLine int
	EndLine   int

	// Content is the chunk text.
	Content string

	// ContentHash is the digest of Content. Embeddings are keyed by this
	// hash, so identical text across files and commits shares one
	// embedding.
	ContentHash Hash

	// TokenCount is the estimated token count of Content.
	TokenCount int
}

// ComputeContentHash fills in the content hash from the chunk text.
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = HashString(c.Content)
}

// ComputeTokenCount fills in the estimated token count from the chunk text.
func (c *Chunk) ComputeTokenCount() int {
	c.TokenCount = EstimateTokens(c.Content)
	return c.TokenCount
}

// Validate checks chunk internal consistency.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	if c.Seq < 0 {
		return errors.New("sequence index must be non-negative")
	}
	if c.BlobHash.IsZero() {
		return errors.New("blob hash is required")
	}
	if c.ContentHash.IsZero() {
		return errors.New("content hash must be computed")
	}
	return nil
}

// EmbeddingRecord maps a chunk-content hash to its vector and the model
// that produced it. Keyed by content hash, not chunk identity, so identical
// chunk text across different files and commits shares one record.
type EmbeddingRecord struct {
	ContentHash Hash
	Model       string
	Vector      []float32
}
