package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/dshills/gitscout-mcp/internal/blobstore"
	"github.com/dshills/gitscout-mcp/internal/chunker"
	"github.com/dshills/gitscout-mcp/internal/embedder"
	"github.com/dshills/gitscout-mcp/internal/vecindex"
	"github.com/dshills/gitscout-mcp/internal/walker"
	"github.com/dshills/gitscout-mcp/pkg/types"
)

// ErrIndexingInProgress is returned when Run is called while another run
// holds the index lock.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Config contains configuration for the indexer
type Config struct {
	Workers       int // concurrent chunking workers (default: runtime.NumCPU())
	MaxTokens     int // chunk token budget (default: chunker.DefaultMaxTokens)
	OverlapTokens int // chunk overlap (default: chunker.DefaultOverlapTokens)
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = chunker.DefaultMaxTokens
	}
	if c.OverlapTokens <= 0 {
		c.OverlapTokens = chunker.DefaultOverlapTokens
	}
}

// Summary describes a completed run. A run with per-item failures still
// completes: the failures surface as Warnings and ledger entries, not as an
// error.
type Summary struct {
	PathsIndexed   int
	EntriesWritten int
	ChunksEmbedded int
	BlobsStored    int
	BlobsReused    int
	ItemsSkipped   int
	PathsRepaired  int
	PathsRemoved   int
	FailedChunks   int
	Warnings       []string
	Duration       time.Duration
}

// Indexer coordinates the pipeline: walk -> dedup -> chunk -> embed -> load.
type Indexer struct {
	blobs    *blobstore.Store
	index    *vecindex.Index
	pipeline *embedder.Pipeline
	cfg      Config
	logger   *slog.Logger
	guard    runGuard
}

// New creates an indexer over an open blob store, vector index, and
// embedding pipeline.
func New(blobs *blobstore.Store, index *vecindex.Index, pipeline *embedder.Pipeline, cfg Config, logger *slog.Logger) *Indexer {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		blobs:    blobs,
		index:    index,
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger,
	}
}

// pathWork is one path whose latest blob needs chunking and embedding.
type pathWork struct {
	path        string
	commitSHA   string
	committedAt time.Time
	blobHash    types.Hash
	content     []byte
	chunks      []types.Chunk
	retry       bool
}

// Run executes one indexing pass over the repository at repoPath. The
// first run against an empty index bulk-loads; later runs upsert per path
// and prune entries for paths gone from HEAD. Only one run may be active
// per Indexer.
func (ix *Indexer) Run(ctx context.Context, repoPath string, onProgress ProgressFunc) (*Summary, error) {
	if !ix.guard.tryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer ix.guard.release()

	start := time.Now()
	summary := &Summary{}

	indexed, err := ix.index.IndexedBlobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load indexed blob set: %w", err)
	}

	w, err := walker.Open(repoPath, indexed, ix.logger)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	fresh, err := ix.index.IsEmpty(ctx)
	if err != nil {
		return nil, err
	}

	prog := Progress{Stage: StageWalk}
	work, err := ix.walk(ctx, w, &prog, summary, onProgress)
	if err != nil {
		return nil, err
	}
	summary.BlobsStored = prog.BlobsStored
	summary.BlobsReused = prog.BlobsReused

	ledgerHashes, err := ix.appendRetryWork(ctx, &work, summary)
	if err != nil {
		return nil, err
	}

	prog.Stage = StageChunk
	work = ix.chunkAll(work, &prog, summary)
	prog.report(onProgress)

	prog.Stage = StageEmbed
	prog.report(onProgress)
	var allChunks []types.Chunk
	for _, pw := range work {
		allChunks = append(allChunks, pw.chunks...)
	}
	vectors, failures, err := ix.pipeline.EmbedChunks(ctx, allChunks)
	if err != nil {
		return nil, err
	}
	failCause := make(map[types.Hash]error)
	for _, bf := range failures {
		for _, h := range bf.Hashes {
			failCause[h] = bf.Err
		}
	}

	prog.Stage = StageWrite
	failedLedger, err := ix.write(ctx, work, vectors, failCause, fresh, &prog, summary, onProgress)
	if err != nil {
		return nil, err
	}

	if err := ix.index.RecordFailedChunks(ctx, failedLedger); err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("failed to record retry ledger: %v", err))
	}
	summary.FailedChunks = len(failedLedger)

	var cleared []types.Hash
	for _, h := range ledgerHashes {
		if _, ok := vectors[h]; ok {
			cleared = append(cleared, h)
		}
	}
	if err := ix.index.ClearFailedChunks(ctx, cleared); err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("failed to clear retry ledger: %v", err))
	}

	// The ledger above is recorded first so the chunks are retried next
	// run even when the provider was down for the whole pass.
	if len(vectors) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("%w: all %d embedding batches failed",
			types.ErrEmbeddingUnavailable, len(failures))
	}

	if !fresh {
		repaired, err := ix.index.RepairAliases(ctx, w.HeadFiles())
		if err != nil {
			return nil, fmt.Errorf("failed to repair renamed paths: %w", err)
		}
		summary.PathsRepaired = repaired

		removed, err := ix.index.RemoveMissingPaths(ctx, w.HeadPaths())
		if err != nil {
			return nil, fmt.Errorf("failed to prune removed paths: %w", err)
		}
		summary.PathsRemoved = removed
	}

	if skipped := w.Skipped(); skipped > 0 {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("%d unreadable commits or files skipped during walk", skipped))
	}
	if len(failures) > 0 {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("%d embedding batches failed; affected chunks will be retried next run", len(failures)))
	}

	summary.Duration = time.Since(start)
	ix.logger.Info("indexing completed",
		slog.String("repo", repoPath),
		slog.Bool("fresh", fresh),
		slog.Int("paths", summary.PathsIndexed),
		slog.Int("entries", summary.EntriesWritten),
		slog.Int("warnings", len(summary.Warnings)),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// walk drains the history walker, storing each new blob and recording
// every (path, commit, blob) association.
func (ix *Indexer) walk(ctx context.Context, w *walker.Walker, prog *Progress, summary *Summary, onProgress ProgressFunc) ([]*pathWork, error) {
	var work []*pathWork

	for {
		item, err := w.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		prog.ItemsWalked++

		rec := types.IndexedPathRecord{
			Path:        item.Path,
			CommitSHA:   item.CommitSHA,
			BlobHash:    item.BlobHash,
			CommittedAt: item.CommittedAt,
		}

		if item.AliasOnly {
			if err := ix.index.RecordPath(ctx, rec); err != nil {
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", item.Path, err))
			}
			prog.BlobsReused++
			continue
		}

		if _, err := ix.blobs.Put(item.Content); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: store blob: %v", item.Path, err))
			continue
		}
		if err := ix.index.RecordPath(ctx, rec); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", item.Path, err))
			continue
		}
		prog.BlobsStored++

		work = append(work, &pathWork{
			path:        item.Path,
			commitSHA:   item.CommitSHA,
			committedAt: item.CommittedAt,
			blobHash:    item.BlobHash,
			content:     item.Content,
		})

		if prog.ItemsWalked%100 == 0 {
			prog.report(onProgress)
		}
	}

	prog.report(onProgress)
	return work, nil
}

// appendRetryWork turns retry-ledger rows into full path work items. The
// whole blob is re-chunked; chunks that already succeeded resolve from the
// durable embedding cache, so only the failed ones go upstream again.
func (ix *Indexer) appendRetryWork(ctx context.Context, work *[]*pathWork, summary *Summary) ([]types.Hash, error) {
	ledger, err := ix.index.FailedChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read retry ledger: %w", err)
	}
	if len(ledger) == 0 {
		return nil, nil
	}

	inRun := make(map[string]struct{}, len(*work))
	for _, pw := range *work {
		inRun[pw.path] = struct{}{}
	}

	hashes := make([]types.Hash, 0, len(ledger))
	retryPaths := make(map[string]types.Hash)
	for _, fc := range ledger {
		hashes = append(hashes, fc.ContentHash)
		if _, busy := inRun[fc.Path]; !busy {
			retryPaths[fc.Path] = fc.BlobHash
		}
	}

	for path, blobHash := range retryPaths {
		content, err := ix.blobs.Get(blobHash)
		if err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: retry blob missing: %v", path, err))
			continue
		}
		records, err := ix.index.PathRecords(ctx, path)
		if err != nil || len(records) == 0 {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: no path record for retry", path))
			continue
		}
		*work = append(*work, &pathWork{
			path:        path,
			commitSHA:   records[0].CommitSHA,
			committedAt: records[0].CommittedAt,
			blobHash:    blobHash,
			content:     content,
			retry:       true,
		})
	}
	return hashes, nil
}

// chunkAll splits blobs into chunks on a worker pool and drops items whose
// content is not chunkable text.
func (ix *Indexer) chunkAll(work []*pathWork, prog *Progress, summary *Summary) []*pathWork {
	pool, err := ants.NewPool(ix.cfg.Workers)
	if err != nil {
		// Pool creation only fails on invalid size; chunk inline instead.
		for _, pw := range work {
			ix.chunkOne(pw, summary, nil)
		}
	} else {
		defer pool.Release()
		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, pw := range work {
			pw := pw
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				ix.chunkOne(pw, summary, &mu)
			}); err != nil {
				wg.Done()
				ix.chunkOne(pw, summary, &mu)
			}
		}
		wg.Wait()
	}

	kept := work[:0]
	for _, pw := range work {
		if len(pw.chunks) == 0 {
			continue
		}
		prog.ChunksBuilt += len(pw.chunks)
		kept = append(kept, pw)
	}
	return kept
}

func (ix *Indexer) chunkOne(pw *pathWork, summary *Summary, mu *sync.Mutex) {
	chunks, err := chunker.Chunk(pw.blobHash, pw.content, ix.cfg.MaxTokens, ix.cfg.OverlapTokens)
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	if err != nil {
		if errors.Is(err, types.ErrUnchunkable) {
			summary.ItemsSkipped++
			ix.logger.Debug("skipping unchunkable blob", slog.String("path", pw.path))
		} else {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: chunk: %v", pw.path, err))
		}
		return
	}
	pw.chunks = chunks
}

// write turns embedded chunks into index entries. Fresh runs collect all
// entries for one bulk load; refresh runs upsert per path. A path whose
// every chunk failed keeps its previous entries.
func (ix *Indexer) write(ctx context.Context, work []*pathWork, vectors map[types.Hash][]float32,
	failCause map[types.Hash]error, fresh bool, prog *Progress, summary *Summary, onProgress ProgressFunc) ([]vecindex.FailedChunk, error) {

	var bulk []types.IndexEntry
	var failedLedger []vecindex.FailedChunk

	for _, pw := range work {
		entries := make([]types.IndexEntry, 0, len(pw.chunks))
		for _, c := range pw.chunks {
			vec, ok := vectors[c.ContentHash]
			if !ok {
				failedLedger = append(failedLedger, vecindex.FailedChunk{
					ContentHash: c.ContentHash,
					BlobHash:    pw.blobHash,
					Path:        pw.path,
					LastError:   causeString(failCause[c.ContentHash]),
				})
				continue
			}
			prog.ChunksEmbedded++
			entries = append(entries, types.IndexEntry{
				Chunk:        c,
				Path:         pw.path,
				CommitSHA:    pw.commitSHA,
				Vector:       vec,
				LastModified: pw.committedAt,
			})
		}
		if len(entries) == 0 {
			continue
		}

		if fresh {
			bulk = append(bulk, entries...)
		} else {
			if err := ix.index.Upsert(ctx, pw.path, entries); err != nil {
				return nil, fmt.Errorf("failed to upsert %s: %w", pw.path, err)
			}
		}
		summary.PathsIndexed++
		summary.EntriesWritten += len(entries)
		prog.EntriesWritten += len(entries)
	}

	if fresh && len(bulk) > 0 {
		if err := ix.index.BulkLoad(ctx, bulk); err != nil {
			return nil, fmt.Errorf("bulk load failed: %w", err)
		}
	}

	summary.ChunksEmbedded = prog.ChunksEmbedded
	prog.report(onProgress)
	return failedLedger, nil
}

func causeString(err error) string {
	if err == nil {
		return "embedding missing"
	}
	return err.Error()
}
