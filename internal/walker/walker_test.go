package walker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	wt   *git.Worktree
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{
		t:    t,
		dir:  dir,
		repo: repo,
		wt:   wt,
		when: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.dir, name)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

func (r *testRepo) remove(name string) {
	r.t.Helper()
	require.NoError(r.t, os.Remove(filepath.Join(r.dir, name)))
}

// commit stages everything and commits with a strictly increasing
// timestamp so newest-first ordering is well defined.
func (r *testRepo) commit(msg string) string {
	r.t.Helper()
	require.NoError(r.t, r.wt.AddWithOptions(&git.AddOptions{All: true}))
	r.when = r.when.Add(time.Hour)
	sig := &object.Signature{Name: "Test Author", Email: "test@example.com", When: r.when}
	sha, err := r.wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(r.t, err)
	return sha.String()
}

func drain(t *testing.T, w *Walker) []Item {
	t.Helper()
	var items []Item
	for {
		item, err := w.Next(context.Background())
		if err == io.EOF {
			return items
		}
		require.NoError(t, err)
		items = append(items, *item)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir(), nil, nil)
	require.ErrorIs(t, err, types.ErrRepositoryUnreadable)
}

func TestWalk_EmptyRepository(t *testing.T) {
	r := newTestRepo(t)
	w, err := Open(r.dir, nil, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Empty(t, drain(t, w))
}

func TestWalk_SingleCommit(t *testing.T) {
	r := newTestRepo(t)
	r.write("a.go", "package a\n")
	r.write("b.go", "package b\n")
	sha := r.commit("initial")

	w, err := Open(r.dir, nil, nil)
	require.NoError(t, err)
	defer w.Close()

	items := drain(t, w)
	require.Len(t, items, 2)

	// Paths in lexical order within the commit.
	assert.Equal(t, "a.go", items[0].Path)
	assert.Equal(t, "b.go", items[1].Path)
	for _, item := range items {
		assert.Equal(t, sha, item.CommitSHA)
		assert.False(t, item.AliasOnly)
		assert.NotEmpty(t, item.Content)
		assert.Equal(t, types.HashBytes(item.Content), item.BlobHash)
	}
}

func TestWalk_MostRecentPairingWins(t *testing.T) {
	r := newTestRepo(t)
	r.write("a.go", "package a\n")
	r.commit("one")
	r.write("a.go", "package a // changed\n")
	second := r.commit("two")

	w, err := Open(r.dir, nil, nil)
	require.NoError(t, err)
	defer w.Close()

	items := drain(t, w)
	require.Len(t, items, 2)

	// Newest version first.
	assert.Equal(t, second, items[0].CommitSHA)
	assert.Equal(t, "package a // changed\n", string(items[0].Content))
	assert.False(t, items[1].AliasOnly)
}

func TestWalk_RenameEmitsAliasOnly(t *testing.T) {
	r := newTestRepo(t)
	content := "package pkg\n\nfunc F() {}\n"
	r.write("old.go", content)
	first := r.commit("add file")

	r.remove("old.go")
	r.write("new.go", content)
	second := r.commit("rename file")

	w, err := Open(r.dir, nil, nil)
	require.NoError(t, err)
	defer w.Close()

	items := drain(t, w)
	require.Len(t, items, 2)

	// The newest pairing carries content; the older path is alias-only
	// with the same blob hash and must not trigger re-embedding.
	assert.Equal(t, "new.go", items[0].Path)
	assert.Equal(t, second, items[0].CommitSHA)
	assert.False(t, items[0].AliasOnly)

	assert.Equal(t, "old.go", items[1].Path)
	assert.Equal(t, first, items[1].CommitSHA)
	assert.True(t, items[1].AliasOnly)
	assert.Nil(t, items[1].Content)
	assert.Equal(t, items[0].BlobHash, items[1].BlobHash)
}

func TestWalk_AlreadyIndexedYieldsNothing(t *testing.T) {
	r := newTestRepo(t)
	r.write("a.go", "package a\n")
	r.write("b.go", "package b\n")
	r.commit("initial")

	w, err := Open(r.dir, nil, nil)
	require.NoError(t, err)
	items := drain(t, w)
	w.Close()
	require.NotEmpty(t, items)

	indexed := make(map[types.Hash]struct{})
	for _, item := range items {
		indexed[item.BlobHash] = struct{}{}
	}

	// Re-running with all prior hashes indexed is an empty walk.
	w2, err := Open(r.dir, indexed, nil)
	require.NoError(t, err)
	defer w2.Close()
	assert.Empty(t, drain(t, w2))
}

func TestWalk_HeadPaths(t *testing.T) {
	r := newTestRepo(t)
	r.write("keep.go", "package keep\n")
	r.write("gone.go", "package gone\n")
	r.commit("both")
	r.remove("gone.go")
	r.commit("drop one")

	w, err := Open(r.dir, nil, nil)
	require.NoError(t, err)
	defer w.Close()

	paths := w.HeadPaths()
	assert.Contains(t, paths, "keep.go")
	assert.NotContains(t, paths, "gone.go")
}

func TestWalk_Cancellation(t *testing.T) {
	r := newTestRepo(t)
	r.write("a.go", "package a\n")
	r.commit("initial")

	w, err := Open(r.dir, nil, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Pending items drain even after cancellation; a fresh commit scan
	// does not start.
	for {
		_, err := w.Next(ctx)
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			return
		}
	}
}
