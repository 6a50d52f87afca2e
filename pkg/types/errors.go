package types

import "errors"

// Sentinel errors shared across component boundaries.
//
// The error taxonomy distinguishes per-item failures (skipped and retried on
// a later run), transient failures (retried with backoff inside the failing
// component), and fatal failures (abort the current run).
var (
	// ErrNotFound is returned when a blob, embedding, or index entry
	// doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrUnchunkable is returned for binary or non-text content that
	// cannot be split into text chunks. Per-item.
	ErrUnchunkable = errors.New("content is not chunkable text")

	// ErrRateLimited indicates the embedding provider rejected a call due
	// to rate limiting. Transient.
	ErrRateLimited = errors.New("rate limited by embedding provider")

	// ErrTimeout indicates an embedding call or index operation exceeded
	// its configured timeout. Transient.
	ErrTimeout = errors.New("operation timed out")

	// ErrProviderFailed indicates the embedding provider returned an error
	// that survived all retry attempts. Per-item at batch granularity.
	ErrProviderFailed = errors.New("embedding provider failed")

	// ErrEmbeddingUnavailable indicates the embedding capability is
	// entirely unreachable. Fatal.
	ErrEmbeddingUnavailable = errors.New("embedding capability unavailable")

	// ErrRepositoryUnreadable indicates the git repository could not be
	// opened at all. Fatal.
	ErrRepositoryUnreadable = errors.New("repository unreadable")

	// ErrIndexCorrupted indicates the vector index is damaged beyond
	// recovery. Fatal.
	ErrIndexCorrupted = errors.New("vector index corrupted")

	// ErrDimensionMismatch is returned when a vector's dimension doesn't
	// match the dimension the index was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
