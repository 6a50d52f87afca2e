package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

// Item is one unit of work produced by the walker.
type Item struct {
	Path        string
	BlobHash    types.Hash
	CommitSHA   string
	CommittedAt time.Time

	// AliasOnly marks an older (path, commit) pairing of a blob emitted
	// earlier in this walk. Alias items carry no content and only produce
	// a path record; they never trigger re-embedding.
	AliasOnly bool

	// Content holds the blob bytes for non-alias items. The walker reads
	// each distinct blob exactly once.
	Content []byte
}

// blobState tracks a git blob hash the walk has already resolved.
type blobState struct {
	hash    types.Hash
	emitted bool // emitted this run, vs. skipped as already indexed
}

type pairKey struct {
	path string
	git  plumbing.Hash
}

// Walker produces a lazy, finite, non-restartable sequence of items
// covering every distinct blob reachable from current history that is not
// already indexed.
type Walker struct {
	repo    *git.Repository
	commits object.CommitIter
	logger  *slog.Logger

	indexed   map[types.Hash]struct{}
	gitSeen   map[plumbing.Hash]blobState
	pairSeen  map[pairKey]struct{}
	headFiles map[string]types.Hash

	pending []Item
	skipped int
}

// Open opens the repository and prepares a newest-first walk. The indexed
// set holds content hashes of blobs indexed by previous runs; blobs in it
// are skipped. Inability to open the repository at all is fatal.
func Open(repoPath string, indexed map[types.Hash]struct{}, logger *slog.Logger) (*Walker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if indexed == nil {
		indexed = make(map[types.Hash]struct{})
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrRepositoryUnreadable, repoPath, err)
	}

	w := &Walker{
		repo:      repo,
		logger:    logger,
		indexed:   indexed,
		gitSeen:   make(map[plumbing.Hash]blobState),
		pairSeen:  make(map[pairKey]struct{}),
		headFiles: make(map[string]types.Hash),
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Repository with no commits: valid, empty walk.
			return w, nil
		}
		return nil, fmt.Errorf("%w: resolve HEAD: %v", types.ErrRepositoryUnreadable, err)
	}

	commits, err := repo.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %v", types.ErrRepositoryUnreadable, err)
	}
	w.commits = commits

	if err := w.collectHeadPaths(head.Hash()); err != nil {
		return nil, err
	}

	return w, nil
}

// collectHeadPaths records every path present at HEAD along with its
// content hash. Callers use the set to prune index entries for removed
// files and to re-pair renamed files with entries indexed in earlier runs.
func (w *Walker) collectHeadPaths(head plumbing.Hash) error {
	commit, err := w.repo.CommitObject(head)
	if err != nil {
		return fmt.Errorf("%w: read HEAD commit: %v", types.ErrRepositoryUnreadable, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("%w: read HEAD tree: %v", types.ErrRepositoryUnreadable, err)
	}
	return tree.Files().ForEach(func(f *object.File) error {
		if f.Mode != filemode.Regular && f.Mode != filemode.Executable {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			w.logger.Warn("skipping unreadable blob at HEAD",
				slog.String("path", f.Name),
				slog.Any("error", err),
			)
			w.skipped++
			return nil
		}
		w.headFiles[f.Name] = types.HashBytes([]byte(content))
		return nil
	})
}

// HeadPaths returns the paths present in the working tree at HEAD.
func (w *Walker) HeadPaths() map[string]struct{} {
	paths := make(map[string]struct{}, len(w.headFiles))
	for path := range w.headFiles {
		paths[path] = struct{}{}
	}
	return paths
}

// HeadFiles returns the content hash of every file at HEAD.
func (w *Walker) HeadFiles() map[string]types.Hash {
	return w.headFiles
}

// Skipped returns the count of commits and files skipped due to per-item
// read errors.
func (w *Walker) Skipped() int {
	return w.skipped
}

// Next returns the next item, or io.EOF when the walk is exhausted. A
// corrupted or unreadable commit is logged, counted as skipped, and walked
// past.
func (w *Walker) Next(ctx context.Context) (*Item, error) {
	for {
		if len(w.pending) > 0 {
			item := w.pending[0]
			w.pending = w.pending[1:]
			return &item, nil
		}

		if w.commits == nil {
			return nil, io.EOF
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		commit, err := w.commits.Next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: advance history: %v", types.ErrRepositoryUnreadable, err)
		}

		if err := w.scanCommit(commit); err != nil {
			w.logger.Warn("skipping unreadable commit",
				slog.String("sha", shortSHA(commit.Hash.String())),
				slog.Any("error", err),
			)
			w.skipped++
		}
	}
}

// Close releases the underlying commit iterator.
func (w *Walker) Close() {
	if w.commits != nil {
		w.commits.Close()
	}
}

// scanCommit queues items for every not-yet-resolved (path, blob) pair in
// the commit's tree, paths in lexical order.
func (w *Walker) scanCommit(commit *object.Commit) error {
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("read tree: %w", err)
	}

	var files []*object.File
	err = tree.Files().ForEach(func(f *object.File) error {
		if f.Mode != filemode.Regular && f.Mode != filemode.Executable {
			return nil
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return fmt.Errorf("iterate tree: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	sha := commit.Hash.String()
	when := commit.Committer.When

	for _, f := range files {
		key := pairKey{path: f.Name, git: f.Blob.Hash}
		if _, seen := w.pairSeen[key]; seen {
			continue
		}
		w.pairSeen[key] = struct{}{}

		if state, ok := w.gitSeen[f.Blob.Hash]; ok {
			if state.emitted {
				w.pending = append(w.pending, Item{
					Path:        f.Name,
					BlobHash:    state.hash,
					CommitSHA:   sha,
					CommittedAt: when,
					AliasOnly:   true,
				})
			}
			continue
		}

		content, err := f.Contents()
		if err != nil {
			w.logger.Warn("skipping unreadable blob",
				slog.String("path", f.Name),
				slog.String("commit", shortSHA(sha)),
				slog.Any("error", err),
			)
			w.skipped++
			continue
		}

		blobHash := types.HashBytes([]byte(content))
		if _, done := w.indexed[blobHash]; done {
			w.gitSeen[f.Blob.Hash] = blobState{hash: blobHash, emitted: false}
			continue
		}

		w.gitSeen[f.Blob.Hash] = blobState{hash: blobHash, emitted: true}
		w.pending = append(w.pending, Item{
			Path:        f.Name,
			BlobHash:    blobHash,
			CommitSHA:   sha,
			CommittedAt: when,
			Content:     []byte(content),
		})
	}

	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
