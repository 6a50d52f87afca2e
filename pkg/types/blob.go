package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Hash is a SHA-256 content digest. It identifies a blob by its raw bytes
// and a chunk by its text, independent of path or commit.
type Hash [32]byte

// HashBytes computes the content hash of raw bytes.
func HashBytes(content []byte) Hash {
	return sha256.Sum256(content)
}

// HashString computes the content hash of a string.
func HashString(text string) Hash {
	return sha256.Sum256([]byte(text))
}

// String returns the full hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters, enough to identify a blob in
// logs and progress output.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:6])
}

// IsZero reports whether the hash is the zero value (never a valid digest
// of real content in practice).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a full hex-encoded hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash %q: expected %d bytes, got %d", s, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Blob is an immutable content unit identified by the hash of its bytes.
// The blob store owns the bytes; everything else references them by hash.
type Blob struct {
	Hash    Hash
	Size    int64
	Content []byte
}

// NewBlob builds a Blob from raw content, computing its hash.
func NewBlob(content []byte) Blob {
	return Blob{
		Hash:    HashBytes(content),
		Size:    int64(len(content)),
		Content: content,
	}
}

// IndexedPathRecord associates a repository path and commit with a blob
// hash. Multiple records may reference the same blob; records are
// append-only once created.
type IndexedPathRecord struct {
	Path        string
	CommitSHA   string
	BlobHash    Hash
	CommittedAt time.Time
}
