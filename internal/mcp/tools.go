package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/gitscout-mcp/internal/indexer"
	"github.com/dshills/gitscout-mcp/internal/searcher"
	"github.com/dshills/gitscout-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRepoUnreadable     = -32001 // Path is not a readable git repository
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Repository not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// Path validation errors
var (
	ErrPathRequired     = errors.New("path is required")
	ErrPathNotAbsolute  = errors.New("path must be absolute")
	ErrPathNotFound     = errors.New("path does not exist")
	ErrPathNotReadable  = errors.New("path is not readable")
	ErrNotDirectory     = errors.New("path is not a directory")
	ErrNotGitRepository = errors.New("path is not a git repository")
)

// handleIndexRepository handles the index_repository tool invocation
func (s *Server) handleIndexRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, mcpErr := requirePath(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	sess, err := s.session(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open repository stores", map[string]interface{}{
			"error": err.Error(),
		})
	}

	summary, err := sess.indexer.Run(ctx, path, nil)
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	case errors.Is(err, types.ErrRepositoryUnreadable):
		return nil, newMCPError(ErrorCodeRepoUnreadable, "cannot read repository", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":         true,
		"paths_indexed":   summary.PathsIndexed,
		"entries_written": summary.EntriesWritten,
		"chunks_embedded": summary.ChunksEmbedded,
		"blobs_stored":    summary.BlobsStored,
		"blobs_reused":    summary.BlobsReused,
		"paths_repaired":  summary.PathsRepaired,
		"paths_removed":   summary.PathsRemoved,
		"failed_chunks":   summary.FailedChunks,
		"duration_ms":     summary.Duration.Milliseconds(),
	}
	if len(summary.Warnings) > 0 {
		response["warning_count"] = len(summary.Warnings)
		if len(summary.Warnings) > 5 {
			response["warnings"] = summary.Warnings[:5]
		} else {
			response["warnings"] = summary.Warnings
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, mcpErr := requirePath(request)
	if mcpErr != nil {
		return nil, mcpErr
	}
	args, _ := request.Params.Arguments.(map[string]interface{})

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	sess, err := s.session(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open repository stores", map[string]interface{}{
			"error": err.Error(),
		})
	}

	empty, err := sess.index.IsEmpty(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to check index", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if empty {
		return nil, newMCPError(ErrorCodeNotIndexed, "repository not indexed; run index_repository first", map[string]interface{}{
			"path": path,
		})
	}

	resp, err := sess.engine.Search(ctx, searcher.SearchRequest{Query: query, Limit: limit})
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			return nil, newMCPError(ErrorCodeInternalError, "embedding provider unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":          r.Rank,
			"score":         r.Boosted,
			"similarity":    r.Similarity,
			"path":          r.Entry.Path,
			"start_line":    r.Entry.Chunk.StartLine,
			"end_line":      r.Entry.Chunk.EndLine,
			"commit":        r.Entry.CommitSHA,
			"last_modified": r.Entry.LastModified.Format(time.RFC3339),
			"content":       r.Entry.Chunk.Content,
		})
	}
	response := map[string]interface{}{
		"query":       query,
		"strategy":    resp.Strategy,
		"candidates":  resp.Candidates,
		"duration_ms": resp.Duration.Milliseconds(),
		"results":     results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, mcpErr := requirePath(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	// No index file means the repository was never indexed; avoid creating
	// one just to report that.
	if _, err := os.Stat(s.cfg.IndexPath(path)); os.IsNotExist(err) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Repository not indexed. Use the index_repository tool first.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	sess, err := s.session(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open repository stores", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats, err := sess.index.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index statistics", map[string]interface{}{
			"error": err.Error(),
		})
	}
	blobCount, err := sess.blobs.Len()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read blob store", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": stats.Entries > 0,
		"path":    path,
		"statistics": map[string]interface{}{
			"entries":       stats.Entries,
			"paths":         stats.Paths,
			"indexed_blobs": stats.IndexedBlobs,
			"stored_blobs":  blobCount,
			"failed_chunks": stats.FailedChunks,
			"index_size_mb": fmt.Sprintf("%.2f", stats.SizeMB),
		},
		"embedding": map[string]interface{}{
			"model":     stats.Model,
			"dimension": stats.Dimension,
		},
		"build_mode": stats.BuildMode,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// requirePath extracts and validates the path argument shared by all tools.
func requirePath(request mcp.CallToolRequest) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrNotGitRepository) {
			code = ErrorCodeRepoUnreadable
		}
		return "", newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return path, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that a path is an absolute, readable git repository
// root.
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	// .git may be a directory or, for worktrees, a file.
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return ErrNotGitRepository
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
