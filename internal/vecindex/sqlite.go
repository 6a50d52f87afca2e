package vecindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

// Metric names accepted at index creation.
const (
	MetricCosine = "cosine"
)

// DefaultOpTimeout bounds a single index operation when Options.OpTimeout
// is zero.
const DefaultOpTimeout = 30 * time.Second

// index_meta keys.
const (
	metaMetric    = "metric"
	metaModel     = "model"
	metaDimension = "dimension"
)

// Options configures an index at creation time. Metric, Model, and
// Dimension are recorded in index_meta on first open; later opens must
// match or Open fails.
type Options struct {
	// Metric is the similarity metric. Only cosine is supported.
	Metric string

	// Model is the embedding model whose vectors the index stores.
	Model string

	// Dimension is the embedding dimension.
	Dimension int

	// OpTimeout bounds each index operation. An operation blocked past the
	// deadline fails with types.ErrTimeout instead of hanging a run. Zero
	// means DefaultOpTimeout.
	OpTimeout time.Duration

	Logger *slog.Logger
}

// Index is the SQLite-backed vector index.
type Index struct {
	db        *sql.DB
	metric    string
	model     string
	dimension int
	opTimeout time.Duration
	logger    *slog.Logger

	// writeMu serializes multi-statement write transactions. SQLite has a
	// single writer anyway; the mutex keeps BulkLoad exclusive at the
	// application level too.
	writeMu sync.Mutex
}

// FailedChunk is one row of the retry ledger.
type FailedChunk struct {
	ContentHash types.Hash
	BlobHash    types.Hash
	Path        string
	Attempts    int
	LastError   string
}

// Candidate is one nearest-neighbor query result before ranking.
type Candidate struct {
	Entry      *types.IndexEntry
	Similarity float64
}

// Stats summarizes index contents.
type Stats struct {
	Entries      int
	Paths        int
	IndexedBlobs int
	FailedChunks int
	SizeMB       float64
	Model        string
	Dimension    int
	BuildMode    string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A lock held by another process surfaces as SQLITE_BUSY after the
	// timeout rather than an indefinite wait
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open opens or creates the index at dbPath. On first open the metric,
// model, and dimension from opts are fixed in index_meta; a later Open with
// different values fails rather than mixing incompatible vectors.
func Open(dbPath string, opts Options) (*Index, error) {
	if opts.Metric == "" {
		opts.Metric = MetricCosine
	}
	if opts.Metric != MetricCosine {
		return nil, fmt.Errorf("unsupported metric %q", opts.Metric)
	}
	if opts.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	if opts.Dimension <= 0 {
		return nil, errors.New("embedding dimension must be positive")
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	db, err := openDatabase(dbPath, opts.OpTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	idx := &Index{
		db:        db,
		metric:    opts.Metric,
		model:     opts.Model,
		dimension: opts.Dimension,
		opTimeout: opts.OpTimeout,
		logger:    opts.Logger,
	}

	if err := idx.initMeta(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return idx, nil
}

// initMeta records the index settings on first open and validates them on
// subsequent opens.
func (idx *Index) initMeta(ctx context.Context) error {
	stored, err := idx.readMeta(ctx)
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		pairs := map[string]string{
			metaMetric:    idx.metric,
			metaModel:     idx.model,
			metaDimension: fmt.Sprintf("%d", idx.dimension),
		}
		for key, value := range pairs {
			_, err := idx.db.ExecContext(ctx,
				"INSERT INTO index_meta (key, value) VALUES (?, ?)", key, value)
			if err != nil {
				return fmt.Errorf("failed to write index meta: %w", err)
			}
		}
		return nil
	}

	if got := stored[metaMetric]; got != idx.metric {
		return fmt.Errorf("%w: index created with metric %q, opened with %q",
			types.ErrIndexCorrupted, got, idx.metric)
	}
	if got := stored[metaModel]; got != idx.model {
		return fmt.Errorf("index created with model %q, opened with %q: reindex required",
			got, idx.model)
	}
	if got := stored[metaDimension]; got != fmt.Sprintf("%d", idx.dimension) {
		return fmt.Errorf("%w: index dimension %s, embedder dimension %d",
			types.ErrDimensionMismatch, got, idx.dimension)
	}
	return nil
}

func (idx *Index) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		return nil, fmt.Errorf("failed to read index meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

// Close closes the database connection
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Model returns the embedding model the index was created with.
func (idx *Index) Model() string {
	return idx.model
}

// Dimension returns the embedding dimension the index was created with.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// opCtx bounds one index operation by the configured timeout.
func (idx *Index) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, idx.opTimeout)
}

// asTimeout converts a deadline error into types.ErrTimeout so callers see
// a wedged database as a retryable failure.
func asTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrTimeout, err)
	}
	return err
}

// IsEmpty reports whether the index holds no entries.
func (idx *Index) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (idx *Index) checkEntry(entry *types.IndexEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry for %s: %w", entry.Path, err)
	}
	if len(entry.Vector) != idx.dimension {
		return fmt.Errorf("%w: entry %s has dimension %d, index expects %d",
			types.ErrDimensionMismatch, entry.Path, len(entry.Vector), idx.dimension)
	}
	return nil
}

const insertEntrySQL = `
	INSERT INTO entries (
		path, chunk_seq, commit_sha, blob_hash, start_line, end_line,
		content, content_hash, token_count, vector, dimension,
		last_modified, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path, chunk_seq) DO UPDATE SET
		commit_sha = excluded.commit_sha,
		blob_hash = excluded.blob_hash,
		start_line = excluded.start_line,
		end_line = excluded.end_line,
		content = excluded.content,
		content_hash = excluded.content_hash,
		token_count = excluded.token_count,
		vector = excluded.vector,
		dimension = excluded.dimension,
		last_modified = excluded.last_modified,
		updated_at = excluded.updated_at
`

func insertEntry(ctx context.Context, tx *sql.Tx, entry *types.IndexEntry, now time.Time) error {
	_, err := tx.ExecContext(ctx, insertEntrySQL,
		entry.Path, entry.Chunk.Seq, entry.CommitSHA, entry.Chunk.BlobHash[:],
		entry.Chunk.StartLine, entry.Chunk.EndLine,
		entry.Chunk.Content, entry.Chunk.ContentHash[:], entry.Chunk.TokenCount,
		serializeVector(entry.Vector), len(entry.Vector),
		entry.LastModified, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry %s/%d: %w", entry.Path, entry.Chunk.Seq, err)
	}
	return nil
}

// BulkLoad inserts entries in one transaction while holding the writer
// exclusively. Used for the first run against an empty index, where the
// per-path bookkeeping of Upsert would only add overhead.
func (idx *Index) BulkLoad(ctx context.Context, entries []types.IndexEntry) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	ctx, cancel := idx.opCtx(ctx)
	defer cancel()
	return asTimeout(idx.bulkLoad(ctx, entries))
}

func (idx *Index) bulkLoad(ctx context.Context, entries []types.IndexEntry) error {
	for i := range entries {
		if err := idx.checkEntry(&entries[i]); err != nil {
			return err
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for i := range entries {
		if err := insertEntry(ctx, tx, &entries[i], now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk load: %w", err)
	}

	idx.logger.Debug("bulk load committed", slog.Int("entries", len(entries)))
	return nil
}

// Upsert replaces the entries of one path in a single transaction: chunk
// sequences present in entries are written over, and sequences absent from
// the new set are deleted. A query sees either the old set or the new set,
// never a mix.
func (idx *Index) Upsert(ctx context.Context, path string, entries []types.IndexEntry) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	ctx, cancel := idx.opCtx(ctx)
	defer cancel()
	return asTimeout(idx.upsert(ctx, path, entries))
}

func (idx *Index) upsert(ctx context.Context, path string, entries []types.IndexEntry) error {
	for i := range entries {
		if err := idx.checkEntry(&entries[i]); err != nil {
			return err
		}
		if entries[i].Path != path {
			return fmt.Errorf("entry path %q does not match upsert path %q", entries[i].Path, path)
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for i := range entries {
		if err := insertEntry(ctx, tx, &entries[i], now); err != nil {
			return err
		}
	}

	// A shorter file leaves stale sequences behind
	if len(entries) == 0 {
		_, err = tx.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path)
	} else {
		placeholders := make([]string, len(entries))
		args := make([]interface{}, 0, len(entries)+1)
		args = append(args, path)
		for i := range entries {
			placeholders[i] = "?"
			args = append(args, entries[i].Chunk.Seq)
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM entries WHERE path = ? AND chunk_seq NOT IN ("+strings.Join(placeholders, ",")+")",
			args...)
	}
	if err != nil {
		return fmt.Errorf("failed to delete stale entries for %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert for %s: %w", path, err)
	}
	return nil
}

// RecordPath appends one (path, commit, blob) association. Re-recording an
// existing association is a no-op.
func (idx *Index) RecordPath(ctx context.Context, rec types.IndexedPathRecord) error {
	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	_, err := idx.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO indexed_paths (path, commit_sha, blob_hash, committed_at)
		VALUES (?, ?, ?, ?)
	`, rec.Path, rec.CommitSHA, rec.BlobHash[:], rec.CommittedAt)
	if err != nil {
		return fmt.Errorf("failed to record path %s: %w", rec.Path, asTimeout(err))
	}
	return nil
}

// IndexedBlobs returns the blob hashes the index is done with: blobs with
// committed entries plus blobs parked in the retry ledger. The set seeds
// the history walk. Path records alone do not count; a run interrupted
// after recording paths but before its entries committed leaves those
// blobs out of the set, so the next walk picks them up again.
func (idx *Index) IndexedBlobs(ctx context.Context) (map[types.Hash]struct{}, error) {
	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	rows, err := idx.db.QueryContext(ctx, `
		SELECT DISTINCT blob_hash FROM entries
		UNION
		SELECT blob_hash FROM failed_chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed blobs: %w", asTimeout(err))
	}
	defer func() { _ = rows.Close() }()

	blobs := make(map[types.Hash]struct{})
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var h types.Hash
		copy(h[:], raw)
		blobs[h] = struct{}{}
	}
	return blobs, rows.Err()
}

// PathRecords returns every recorded association for a path, most recent
// commit first.
func (idx *Index) PathRecords(ctx context.Context, path string) ([]types.IndexedPathRecord, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT path, commit_sha, blob_hash, committed_at
		FROM indexed_paths
		WHERE path = ?
		ORDER BY committed_at DESC
	`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]types.IndexedPathRecord, 0)
	for rows.Next() {
		var rec types.IndexedPathRecord
		var raw []byte
		if err := rows.Scan(&rec.Path, &rec.CommitSHA, &raw, &rec.CommittedAt); err != nil {
			return nil, err
		}
		copy(rec.BlobHash[:], raw)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeletePath removes all entries for a path. The indexed_paths history is
// kept; it records what was indexed, not what is live.
func (idx *Index) DeletePath(ctx context.Context, path string) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	_, err := idx.db.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete entries for %s: %w", path, asTimeout(err))
	}
	return nil
}

// RemoveMissingPaths deletes entries for every path not in the live set and
// returns how many paths were removed.
func (idx *Index) RemoveMissingPaths(ctx context.Context, live map[string]struct{}) (int, error) {
	listCtx, cancel := idx.opCtx(ctx)
	defer cancel()

	rows, err := idx.db.QueryContext(listCtx, "SELECT DISTINCT path FROM entries")
	if err != nil {
		return 0, asTimeout(err)
	}

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if _, ok := live[path]; !ok {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, asTimeout(err)
	}
	_ = rows.Close()

	for _, path := range stale {
		if err := idx.DeletePath(ctx, path); err != nil {
			return 0, err
		}
		idx.logger.Debug("removed entries for missing path", slog.String("path", path))
	}
	return len(stale), nil
}

const cloneEntriesSQL = `
INSERT INTO entries (
	path, chunk_seq, commit_sha, blob_hash, start_line, end_line,
	content, content_hash, token_count, vector, dimension,
	last_modified, created_at, updated_at
)
SELECT ?, chunk_seq, commit_sha, blob_hash, start_line, end_line,
	content, content_hash, token_count, vector, dimension,
	last_modified, ?, ?
FROM entries
WHERE blob_hash = ?
  AND path = (SELECT path FROM entries WHERE blob_hash = ? ORDER BY path LIMIT 1)
`

// RepairAliases re-points entries at files renamed between runs. A head
// path with no entries whose content is already indexed under another path
// gets the donor's entries cloned over, so nothing is re-chunked or
// re-embedded. Returns how many paths were repaired.
func (idx *Index) RepairAliases(ctx context.Context, headFiles map[string]types.Hash) (int, error) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	repaired, err := idx.repairAliases(ctx, headFiles)
	return repaired, asTimeout(err)
}

func (idx *Index) repairAliases(ctx context.Context, headFiles map[string]types.Hash) (int, error) {
	paths := make([]string, 0, len(headFiles))
	for path := range headFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	repaired := 0
	for _, path := range paths {
		hash := headFiles[path]

		var exists bool
		err := idx.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM entries WHERE path = ?)", path).Scan(&exists)
		if err != nil {
			return repaired, err
		}
		if exists {
			continue
		}

		now := time.Now().UTC()
		res, err := idx.db.ExecContext(ctx, cloneEntriesSQL, path, now, now, hash[:], hash[:])
		if err != nil {
			return repaired, fmt.Errorf("failed to repair entries for %s: %w", path, err)
		}
		copied, err := res.RowsAffected()
		if err != nil {
			return repaired, err
		}
		if copied == 0 {
			continue
		}

		_, err = idx.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO indexed_paths (path, commit_sha, blob_hash, committed_at)
			SELECT ?, commit_sha, blob_hash, committed_at
			FROM indexed_paths
			WHERE blob_hash = ?
			ORDER BY committed_at DESC
			LIMIT 1
		`, path, hash[:])
		if err != nil {
			return repaired, err
		}

		idx.logger.Debug("repaired renamed path",
			slog.String("path", path),
			slog.Int64("entries", copied),
		)
		repaired++
	}
	return repaired, nil
}

// Embedding cache operations, satisfying the pipeline's record store.

// GetEmbedding returns the cached vector for a content hash, or
// types.ErrNotFound.
func (idx *Index) GetEmbedding(ctx context.Context, contentHash types.Hash, model string) ([]float32, error) {
	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	var blob []byte
	err := idx.db.QueryRowContext(ctx, `
		SELECT vector FROM embedding_cache WHERE content_hash = ? AND model = ?
	`, contentHash[:], model).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, asTimeout(err)
	}
	return deserializeVector(blob), nil
}

// PutEmbedding stores a vector keyed by content hash and model.
func (idx *Index) PutEmbedding(ctx context.Context, rec types.EmbeddingRecord) error {
	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (content_hash, model, dimension, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_hash, model) DO UPDATE SET
			dimension = excluded.dimension,
			vector = excluded.vector
	`, rec.ContentHash[:], rec.Model, len(rec.Vector), serializeVector(rec.Vector))
	if err != nil {
		return fmt.Errorf("failed to store embedding record: %w", asTimeout(err))
	}
	return nil
}

// Retry ledger operations.

// RecordFailedChunks upserts ledger rows for chunks whose embedding batch
// failed, bumping the attempt count on repeats.
func (idx *Index) RecordFailedChunks(ctx context.Context, failed []FailedChunk) error {
	if len(failed) == 0 {
		return nil
	}

	ctx, cancel := idx.opCtx(ctx)
	defer cancel()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, fc := range failed {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failed_chunks (content_hash, blob_hash, path, attempts, last_error, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT(content_hash) DO UPDATE SET
				attempts = attempts + 1,
				last_error = excluded.last_error,
				updated_at = excluded.updated_at
		`, fc.ContentHash[:], fc.BlobHash[:], fc.Path, fc.LastError, now)
		if err != nil {
			return fmt.Errorf("failed to record failed chunk: %w", err)
		}
	}
	return tx.Commit()
}

// FailedChunks returns the full retry ledger.
func (idx *Index) FailedChunks(ctx context.Context) ([]FailedChunk, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT content_hash, blob_hash, path, attempts, last_error
		FROM failed_chunks
		ORDER BY updated_at
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	failed := make([]FailedChunk, 0)
	for rows.Next() {
		var fc FailedChunk
		var contentHash, blobHash []byte
		var lastError sql.NullString
		if err := rows.Scan(&contentHash, &blobHash, &fc.Path, &fc.Attempts, &lastError); err != nil {
			return nil, err
		}
		copy(fc.ContentHash[:], contentHash)
		copy(fc.BlobHash[:], blobHash)
		if lastError.Valid {
			fc.LastError = lastError.String
		}
		failed = append(failed, fc)
	}
	return failed, rows.Err()
}

// ClearFailedChunks drops ledger rows for chunks that have since succeeded.
func (idx *Index) ClearFailedChunks(ctx context.Context, hashes []types.Hash) error {
	if len(hashes) == 0 {
		return nil
	}

	placeholders := make([]string, len(hashes))
	args := make([]interface{}, len(hashes))
	for i, h := range hashes {
		placeholders[i] = "?"
		hc := h
		args[i] = hc[:]
	}

	query := `DELETE FROM failed_chunks WHERE content_hash IN (` + strings.Join(placeholders, ",") + `)`
	opctx, cancel := idx.opCtx(ctx)
	defer cancel()
	_, err := idx.db.ExecContext(opctx, query, args...)
	return asTimeout(err)
}

// Stats reports index contents and size.
func (idx *Index) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Model:     idx.model,
		Dimension: idx.dimension,
		BuildMode: BuildMode,
	}

	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&stats.Entries); err != nil {
		return nil, err
	}
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT path) FROM entries").Scan(&stats.Paths); err != nil {
		return nil, err
	}
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT blob_hash) FROM indexed_paths").Scan(&stats.IndexedBlobs); err != nil {
		return nil, err
	}
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM failed_chunks").Scan(&stats.FailedChunks); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := idx.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = idx.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return stats, nil
}
