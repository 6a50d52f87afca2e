package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gitscout-mcp/internal/blobstore"
	"github.com/dshills/gitscout-mcp/internal/config"
	"github.com/dshills/gitscout-mcp/internal/embedder"
	"github.com/dshills/gitscout-mcp/internal/indexer"
	"github.com/dshills/gitscout-mcp/internal/searcher"
	"github.com/dshills/gitscout-mcp/internal/vecindex"
)

const (
	// ServerName is the MCP server name
	ServerName = "gitscout-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// session holds the per-repository stores and engines. Sessions are opened
// lazily on first tool call and cached for the server's lifetime.
type session struct {
	blobs    *blobstore.Store
	index    *vecindex.Index
	pipeline *embedder.Pipeline
	indexer  *indexer.Indexer
	engine   *searcher.Engine
}

func (s *session) close() {
	_ = s.index.Close()
	_ = s.blobs.Close()
}

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	cfg      config.Config
	logger   *slog.Logger
	emb      embedder.Embedder
	strategy searcher.RankStrategy

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates an MCP server. The embedding provider is resolved once
// from configuration and shared by the index and query paths.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	strategy, err := buildStrategy(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		logger:   logger,
		emb:      emb,
		strategy: strategy,
		sessions: make(map[string]*session),
	}
	s.registerTools()
	return s, nil
}

func newEmbedder(cfg config.Config) (embedder.Embedder, error) {
	if cfg.EmbeddingProvider != "" {
		return embedder.New(embedder.Config{Provider: cfg.EmbeddingProvider})
	}
	return embedder.NewFromEnv()
}

// buildStrategy maps configuration onto a ranking strategy.
func buildStrategy(cfg config.Config) (searcher.RankStrategy, error) {
	switch cfg.RankStrategy {
	case "", searcher.StrategyStep:
		cutoff := time24h(cfg.RecencyCutoffDays)
		return searcher.NewStepRecency(cutoff, cfg.StaleMultiplier), nil
	case searcher.StrategyExpDecay:
		return searcher.NewExpDecay(time24h(cfg.HalfLifeDays)), nil
	case searcher.StrategyNone:
		return searcher.NopRank{}, nil
	default:
		return nil, fmt.Errorf("unknown rank strategy %q", cfg.RankStrategy)
	}
}

func time24h(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// Serve runs the stdio server until stdin closes or the context is
// cancelled, then releases every open session.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return server.ServeStdio(s.mcp)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.closeSessions()
		return nil
	})
	return g.Wait()
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(indexRepositoryTool(), s.handleIndexRepository)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// session returns the cached session for a repository, opening its stores
// on first use.
func (s *Server) session(repoPath string) (*session, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[abs]; ok {
		return sess, nil
	}

	if err := os.MkdirAll(s.cfg.RepoDir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	blobs, err := blobstore.Open(blobstore.Options{
		Path:   s.cfg.BlobDir(abs),
		Logger: s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	index, err := vecindex.Open(s.cfg.IndexPath(abs), vecindex.Options{
		Model:     s.emb.Model(),
		Dimension: s.emb.Dimension(),
		Logger:    s.logger,
	})
	if err != nil {
		_ = blobs.Close()
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	pipeline := embedder.NewPipeline(s.emb, index, embedder.PipelineConfig{
		BatchSize:         s.cfg.EmbedBatchSize,
		RequestsPerMinute: s.cfg.EmbedRequestsPerMinute,
	}, s.logger)

	sess := &session{
		blobs:    blobs,
		index:    index,
		pipeline: pipeline,
		indexer: indexer.New(blobs, index, pipeline, indexer.Config{
			Workers:       s.cfg.Workers,
			MaxTokens:     s.cfg.ChunkMaxTokens,
			OverlapTokens: s.cfg.ChunkOverlapTokens,
		}, s.logger),
		engine: searcher.NewEngine(index, pipeline, s.strategy, s.logger),
	}
	s.sessions[abs] = sess
	return sess, nil
}

// IndexOnce runs a single indexing pass outside the MCP protocol, for the
// CLI index verb.
func (s *Server) IndexOnce(ctx context.Context, repoPath string, onProgress indexer.ProgressFunc) (*indexer.Summary, error) {
	sess, err := s.session(repoPath)
	if err != nil {
		return nil, err
	}
	return sess.indexer.Run(ctx, repoPath, onProgress)
}

// SearchOnce runs a single query outside the MCP protocol, for the CLI
// search verb.
func (s *Server) SearchOnce(ctx context.Context, repoPath, query string, limit int) (*searcher.SearchResponse, error) {
	sess, err := s.session(repoPath)
	if err != nil {
		return nil, err
	}
	return sess.engine.Search(ctx, searcher.SearchRequest{Query: query, Limit: limit})
}

// Close releases every open session.
func (s *Server) Close() {
	s.closeSessions()
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, sess := range s.sessions {
		sess.close()
		delete(s.sessions, path)
	}
}
