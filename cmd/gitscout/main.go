package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dshills/gitscout-mcp/internal/config"
	"github.com/dshills/gitscout-mcp/internal/indexer"
	"github.com/dshills/gitscout-mcp/internal/mcp"
	"github.com/dshills/gitscout-mcp/internal/vecindex"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// .env is optional; the environment wins over it.
	_ = godotenv.Load()

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Printf("gitscout MCP server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", vecindex.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", vecindex.DriverName)
		fmt.Printf("Vector Extension: %v\n", vecindex.VectorExtensionAvailable)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gitscout: %v\n", err)
		os.Exit(1)
	}

	// stdout is reserved for MCP protocol and verb output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	verb := "serve"
	if len(os.Args) > 1 {
		verb = os.Args[1]
	}

	switch verb {
	case "serve":
		logger.Info("gitscout MCP server listening on stdio",
			slog.String("version", version),
			slog.String("build_mode", vecindex.BuildMode),
		)
		if err := server.Serve(ctx); err != nil {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case "index":
		runIndex(ctx, server, os.Args[2:], logger)
	case "search":
		runSearch(ctx, server, os.Args[2:], logger)
	default:
		fmt.Fprintf(os.Stderr, "usage: gitscout [serve | index <repo> | search <repo> <query...> | --version]\n")
		os.Exit(2)
	}
}

func runIndex(ctx context.Context, server *mcp.Server, args []string, logger *slog.Logger) {
	defer server.Close()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: gitscout index <repo>\n")
		os.Exit(2)
	}
	repo := absPath(args[0])

	summary, err := server.IndexOnce(ctx, repo, func(p indexer.Progress) {
		fmt.Fprintf(os.Stderr, "\r%s: %d items, %d chunks embedded", p.Stage, p.ItemsWalked, p.ChunksEmbedded)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		logger.Error("indexing failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("indexed %d paths, %d entries (%d chunks embedded, %d blobs stored, %d reused) in %s\n",
		summary.PathsIndexed, summary.EntriesWritten, summary.ChunksEmbedded,
		summary.BlobsStored, summary.BlobsReused, summary.Duration.Round(10*time.Millisecond))
	if summary.PathsRepaired > 0 || summary.PathsRemoved > 0 {
		fmt.Printf("repaired %d renamed paths, pruned %d removed paths\n",
			summary.PathsRepaired, summary.PathsRemoved)
	}
	for _, w := range summary.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func runSearch(ctx context.Context, server *mcp.Server, args []string, logger *slog.Logger) {
	defer server.Close()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: gitscout search <repo> <query...>\n")
		os.Exit(2)
	}
	repo := absPath(args[0])
	query := strings.Join(args[1:], " ")

	resp, err := server.SearchOnce(ctx, repo, query, 0)
	if err != nil {
		logger.Error("search failed", slog.Any("error", err))
		os.Exit(1)
	}

	if len(resp.Results) == 0 {
		fmt.Println("no results")
		return
	}
	for _, r := range resp.Results {
		fmt.Printf("%2d. %s:%d-%d  score=%.3f  (%s)\n",
			r.Rank, r.Entry.Path, r.Entry.Chunk.StartLine, r.Entry.Chunk.EndLine,
			r.Boosted, r.Entry.LastModified.Format("2006-01-02"))
	}
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
