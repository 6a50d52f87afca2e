package indexer

import "sync/atomic"

// runGuard serializes indexing passes over one index. Acquisition never
// blocks: a second concurrent Run is refused outright rather than queued,
// so two passes can never interleave writes.
type runGuard struct {
	held atomic.Bool
}

// tryAcquire claims the guard, reporting false when a pass already holds it.
func (g *runGuard) tryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// release frees the guard. Only the pass that acquired it may call this.
func (g *runGuard) release() {
	g.held.Store(false)
}
