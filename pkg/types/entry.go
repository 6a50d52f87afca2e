package types

import (
	"errors"
	"time"
)

// IndexEntry is the unit stored in the vector index: a chunk plus its
// embedding vector and provenance. Entries are never mutated, only
// superseded by a newer entry for the same path when content changes, and
// deleted when a path leaves the working tree.
type IndexEntry struct {
	Chunk Chunk

	// Path and CommitSHA record where the chunk's blob was most recently
	// seen in history.
	Path      string
	CommitSHA string

	// Vector is the chunk's embedding.
	Vector []float32

	// LastModified is the commit timestamp of the entry's commit, used
	// for recency boosting at query time.
	LastModified time.Time
}

// Validate checks entry internal consistency before it is persisted.
func (e *IndexEntry) Validate() error {
	if err := e.Chunk.Validate(); err != nil {
		return err
	}
	if e.Path == "" {
		return errors.New("entry path is required")
	}
	if e.CommitSHA == "" {
		return errors.New("entry commit is required")
	}
	if len(e.Vector) == 0 {
		return errors.New("entry vector is required")
	}
	return nil
}
