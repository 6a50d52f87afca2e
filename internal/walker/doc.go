// Package walker traverses a git repository's commit history and emits the
// distinct blobs that still need indexing.
//
// Traversal is newest-first over commits and lexical over paths within a
// commit, so incremental runs are deterministic and resumable. A blob hash
// seen under multiple paths or commits is emitted once, at its most recent
// (path, commit) pairing; older aliases surface as path-record-only items
// that never trigger re-embedding. Blobs already present in the caller's
// indexed set are skipped entirely.
package walker
