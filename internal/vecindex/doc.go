// Package vecindex persists index entries and their embedding vectors in
// SQLite and serves nearest-neighbor queries over them.
//
// The database is opened in WAL mode with a single writer connection.
// Vectors are stored as little-endian float32 BLOBs. Two build modes are
// supported: the cgo build (tag sqlite_vec, mattn/go-sqlite3) computes
// cosine distance in SQL via the sqlite-vec extension, while the pure-Go
// build (modernc.org/sqlite) scans candidate vectors and ranks them in Go.
// Both modes produce identical orderings.
//
// Besides the entries table the index carries three supporting tables:
// indexed_paths, the append-only record of every (path, commit, blob)
// association ever indexed; embedding_cache, the durable vector store
// consulted by the embedding pipeline before any provider call; and
// failed_chunks, the retry ledger for chunks whose embedding batch failed.
//
// The index is created with a fixed metric, model, and dimension recorded
// in index_meta. Reopening with different values is an error rather than a
// silent mix of incompatible vectors.
package vecindex
