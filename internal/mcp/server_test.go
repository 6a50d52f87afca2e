package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gitscout-mcp/internal/config"
	"github.com/dshills/gitscout-mcp/internal/searcher"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		DataDir:           t.TempDir(),
		EmbeddingProvider: "local",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(s.closeSessions)
	return s
}

// testGitRepo creates a repository with one committed Go file and returns
// its path.
func testGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	content := "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(content), 0o644))
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	sig := &object.Signature{
		Name:  "Test Author",
		Email: "test@example.com",
		When:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return dir
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &parsed))
	return parsed
}

func TestNewServerRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Config{
		DataDir:           t.TempDir(),
		EmbeddingProvider: "local",
		RankStrategy:      "llm",
	}
	_, err := NewServer(cfg, nil)
	assert.Error(t, err)
}

func TestBuildStrategy(t *testing.T) {
	cases := map[string]string{
		"":                        searcher.StrategyStep,
		searcher.StrategyStep:     searcher.StrategyStep,
		searcher.StrategyExpDecay: searcher.StrategyExpDecay,
		searcher.StrategyNone:     searcher.StrategyNone,
	}
	for in, want := range cases {
		strategy, err := buildStrategy(config.Config{RankStrategy: in})
		require.NoError(t, err, "strategy %q", in)
		assert.Equal(t, want, strategy.Name(), "strategy %q", in)
	}
}

func TestValidatePath(t *testing.T) {
	repoDir := testGitRepo(t)
	plainDir := t.TempDir()
	file := filepath.Join(plainDir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.ErrorIs(t, validatePath(""), ErrPathRequired)
	assert.ErrorIs(t, validatePath("relative/path"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(filepath.Join(plainDir, "missing")), ErrPathNotFound)
	assert.ErrorIs(t, validatePath(file), ErrNotDirectory)
	assert.ErrorIs(t, validatePath(plainDir), ErrNotGitRepository)
	assert.NoError(t, validatePath(repoDir))
}

func TestSessionCaching(t *testing.T) {
	s := testServer(t)
	repoDir := testGitRepo(t)

	first, err := s.session(repoDir)
	require.NoError(t, err)
	second, err := s.session(repoDir)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestIndexSearchStatusRoundTrip(t *testing.T) {
	s := testServer(t)
	repoDir := testGitRepo(t)
	ctx := context.Background()

	indexResult, err := s.handleIndexRepository(ctx, toolRequest("index_repository", map[string]interface{}{
		"path": repoDir,
	}))
	require.NoError(t, err)
	indexed := resultJSON(t, indexResult)
	assert.Equal(t, true, indexed["indexed"])
	assert.Equal(t, float64(1), indexed["paths_indexed"])

	searchResult, err := s.handleSearchCode(ctx, toolRequest("search_code", map[string]interface{}{
		"path":  repoDir,
		"query": "hello world entry point",
		"limit": float64(5),
	}))
	require.NoError(t, err)
	search := resultJSON(t, searchResult)
	results, ok := search["results"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, results)
	top, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "main.go", top["path"])
	assert.Equal(t, float64(1), top["rank"])

	statusResult, err := s.handleGetStatus(ctx, toolRequest("get_status", map[string]interface{}{
		"path": repoDir,
	}))
	require.NoError(t, err)
	status := resultJSON(t, statusResult)
	assert.Equal(t, true, status["indexed"])
}

func TestSearchUnindexedRepository(t *testing.T) {
	s := testServer(t)
	repoDir := testGitRepo(t)

	_, err := s.handleSearchCode(context.Background(), toolRequest("search_code", map[string]interface{}{
		"path":  repoDir,
		"query": "anything",
	}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNotIndexed, mcpErr.Code)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := testServer(t)
	repoDir := testGitRepo(t)

	_, err := s.handleSearchCode(context.Background(), toolRequest("search_code", map[string]interface{}{
		"path": repoDir,
	}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestGetStatusUnindexedRepository(t *testing.T) {
	s := testServer(t)
	repoDir := testGitRepo(t)

	result, err := s.handleGetStatus(context.Background(), toolRequest("get_status", map[string]interface{}{
		"path": repoDir,
	}))
	require.NoError(t, err)
	status := resultJSON(t, result)
	assert.Equal(t, false, status["indexed"])
}

func TestRequirePathRejectsBadArguments(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	_, err := s.handleIndexRepository(ctx, toolRequest("index_repository", nil))
	require.Error(t, err)

	_, err = s.handleIndexRepository(ctx, toolRequest("index_repository", map[string]interface{}{}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}
