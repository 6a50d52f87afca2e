// Package mcp implements the Model Context Protocol (MCP) server for
// gitscout.
//
// The server exposes three tools to AI coding assistants over stdio:
//   - index_repository: walk a repository's git history and index it for
//     semantic search
//   - search_code: search an indexed repository with a natural language
//     query
//   - get_status: report index statistics for a repository
//
// MCP is a JSON-RPC 2.0 protocol over stdio, so stdout is reserved for
// protocol messages and all logging goes to stderr.
//
// Each repository gets its own blob store and vector index under the
// configured data directory, keyed by a hash of the repository path. A
// single embedding provider is shared across repositories so the query and
// index paths hit the same in-memory cache.
//
// # Error Handling
//
// Tool failures map to JSON-RPC error codes:
//   - -32602: invalid params (missing or malformed arguments)
//   - -32603: internal error
//   - -32001: path is not a readable git repository
//   - -32002: an indexing run is already in progress
//   - -32003: repository not indexed yet
//   - -32004: empty search query
package mcp
