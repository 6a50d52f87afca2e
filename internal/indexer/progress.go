package indexer

// Stage identifies the pipeline phase a progress event belongs to.
type Stage string

const (
	StageWalk  Stage = "walk"
	StageChunk Stage = "chunk"
	StageEmbed Stage = "embed"
	StageWrite Stage = "write"
)

// Progress is a point-in-time snapshot of a running index operation.
type Progress struct {
	Stage          Stage
	ItemsWalked    int
	BlobsStored    int
	BlobsReused    int
	ChunksBuilt    int
	ChunksEmbedded int
	EntriesWritten int
}

// ProgressFunc receives progress snapshots. Called synchronously from the
// indexing goroutine; keep it fast.
type ProgressFunc func(Progress)

// report invokes the sink if one is set.
func (p Progress) report(fn ProgressFunc) {
	if fn != nil {
		fn(p)
	}
}
