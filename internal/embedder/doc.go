// Package embedder generates vector embeddings for text chunks and natural
// language queries.
//
// The Embedder interface abstracts the external embedding capability;
// providers exist for OpenAI, Jina AI, and a deterministic local fallback
// used in tests and offline development. The Pipeline wraps a provider with
// the behavior the indexing pipeline needs: content-hash caching (an
// in-memory LRU in front of a durable record store), batching, a
// requests-per-minute ceiling that blocks rather than fails, per-call
// timeouts, and partial-failure reporting for batches that exhaust their
// retries.
package embedder
