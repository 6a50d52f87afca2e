// Package blobstore implements the content-addressed blob store backed by
// BadgerDB. It deduplicates identical file content seen at different commits
// and paths: Put is idempotent, returning the same hash for equal content
// and bumping a reference count instead of writing twice.
package blobstore
