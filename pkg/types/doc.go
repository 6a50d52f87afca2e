// Package types provides shared type definitions for the GitScout indexing
// pipeline and retrieval engine.
//
// This package defines the domain types used across multiple components:
// content-addressed blob hashes, path records, text chunks, vector index
// entries, and search results.
//
// # Core Types
//
// Hash is the content digest that identifies a blob or a chunk's text:
//
//	h := types.HashBytes(content)
//
// Chunk represents a bounded, possibly overlapping text span of a blob, the
// unit that gets embedded and searched:
//
//	chunk := types.Chunk{
//	    BlobHash:  blobHash,
//	    Seq:       0,
//	    StartLine: 1,
//	    EndLine:   42,
//	    Content:   text,
//	}
//	chunk.ComputeContentHash()
//
// IndexEntry is the durable unit stored in the vector index: a chunk plus
// its embedding vector and provenance (path, commit, last-modified time).
//
// Types here are plain data with validation helpers. Behavior lives in the
// internal packages that produce and consume them.
package types
