package vecindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

// Query returns the k entries nearest to vector, ordered by similarity
// descending. An empty index yields an empty slice, not an error.
func (idx *Index) Query(ctx context.Context, vector []float32, k int) ([]Candidate, error) {
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			types.ErrDimensionMismatch, len(vector), idx.dimension)
	}
	if k <= 0 {
		return []Candidate{}, nil
	}

	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	var results []Candidate
	var err error
	if VectorExtensionAvailable {
		results, err = idx.queryOptimized(ctx, vector, k)
	} else {
		results, err = idx.queryFallback(ctx, vector, k)
	}
	return results, asTimeout(err)
}

const entryColumns = `
	path, chunk_seq, commit_sha, blob_hash, start_line, end_line,
	content, content_hash, token_count, vector, last_modified
`

// scanEntry reads one entries row into an IndexEntry, returning the raw
// vector blob for callers that score in Go.
func scanEntry(rows *sql.Rows, extra ...interface{}) (*types.IndexEntry, []byte, error) {
	var entry types.IndexEntry
	var blobHash, contentHash, vectorBlob []byte

	dest := []interface{}{
		&entry.Path, &entry.Chunk.Seq, &entry.CommitSHA, &blobHash,
		&entry.Chunk.StartLine, &entry.Chunk.EndLine,
		&entry.Chunk.Content, &contentHash, &entry.Chunk.TokenCount,
		&vectorBlob, &entry.LastModified,
	}
	dest = append(dest, extra...)

	if err := rows.Scan(dest...); err != nil {
		return nil, nil, err
	}
	copy(entry.Chunk.BlobHash[:], blobHash)
	copy(entry.Chunk.ContentHash[:], contentHash)
	entry.Vector = deserializeVector(vectorBlob)
	return &entry, vectorBlob, nil
}

// queryOptimized computes cosine distance in SQL via sqlite-vec, so
// ordering and limiting happen before rows reach Go.
func (idx *Index) queryOptimized(ctx context.Context, vector []float32, k int) ([]Candidate, error) {
	queryBlob := serializeVector(vector)

	query := `
		SELECT ` + entryColumns + `,
			1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM entries
		ORDER BY similarity DESC
		LIMIT ?
	`
	rows, err := idx.db.QueryContext(ctx, query, queryBlob, k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]Candidate, 0, k)
	for rows.Next() {
		var similarity float64
		entry, _, err := scanEntry(rows, &similarity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, Candidate{Entry: entry, Similarity: similarity})
	}
	return results, rows.Err()
}

// queryFallback scans all entry vectors and ranks them in Go. Used by
// purego builds where the sqlite-vec extension is unavailable.
func (idx *Index) queryFallback(ctx context.Context, vector []float32, k int) ([]Candidate, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]Candidate, 0, 256)
	for rows.Next() {
		entry, _, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if len(entry.Vector) != len(vector) {
			continue // dimension mismatch, skip
		}
		candidates = append(candidates, Candidate{
			Entry:      entry,
			Similarity: cosineSimilarity(vector, entry.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k], nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
