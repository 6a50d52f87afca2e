// Package indexer orchestrates the indexing pipeline: walk git history,
// deduplicate blobs through the content store, chunk new blobs on a worker
// pool, embed the chunks in batches, and write the resulting entries to
// the vector index.
//
// The first run against an empty index bulk-loads all entries in one
// transaction; later runs upsert per path and prune entries for paths no
// longer present at HEAD. Chunks whose embedding batch failed are recorded
// in the index's retry ledger and picked up again on the next run, where
// their already-embedded siblings resolve from the durable cache without
// upstream calls.
//
// A non-blocking process lock guards Run, so a second concurrent run
// returns ErrIndexingInProgress instead of interleaving writes.
package indexer
