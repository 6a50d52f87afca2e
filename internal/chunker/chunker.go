package chunker

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

const (
	// DefaultMaxTokens is the target maximum token count per chunk.
	DefaultMaxTokens = 400

	// DefaultOverlapTokens is the token window repeated from a chunk's
	// predecessor.
	DefaultOverlapTokens = 80
)

// line is one source line with its 1-based line number. Lines keep their
// trailing newline so joining reproduces the original content.
type line struct {
	text string
	no   int
}

// Chunk splits blob content into bounded, overlapping chunks. It is a pure
// function of its arguments: restartable and deterministic.
//
// A boundary is placed whenever the running token estimate would exceed
// maxTokens, backing off to the nearest end of line; a single line whose
// own estimate exceeds maxTokens becomes a chunk by itself rather than
// being split mid-line. Each chunk after the first repeats the trailing
// overlapTokens worth of lines from its predecessor; overlap is capped at
// maxTokens/2. Empty content yields zero chunks, binary or non-UTF-8
// content is rejected with types.ErrUnchunkable.
func Chunk(blobHash types.Hash, content []byte, maxTokens, overlapTokens int) ([]types.Chunk, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens > maxTokens/2 {
		overlapTokens = maxTokens / 2
	}

	if len(content) == 0 {
		return nil, nil
	}
	if bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: blob %s", types.ErrUnchunkable, blobHash.Short())
	}

	lines := splitLines(string(content))
	maxChars := maxTokens * types.TokensPerChar
	overlapChars := overlapTokens * types.TokensPerChar

	var chunks []types.Chunk
	var acc []line
	accChars := 0

	flush := func() {
		if len(acc) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(blobHash, len(chunks), acc))
	}

	for _, ln := range lines {
		lineChars := len(ln.text)

		if lineChars > maxChars {
			// Oversized single line: never split inside a line, emit it
			// as its own chunk.
			flush()
			chunks = append(chunks, buildChunk(blobHash, len(chunks), []line{ln}))
			acc = nil
			accChars = 0
			continue
		}

		if len(acc) > 0 && accChars+lineChars > maxChars {
			flush()
			carry, carryChars := overlapLines(acc, overlapChars)
			if carryChars+lineChars > maxChars {
				carry, carryChars = nil, 0
			}
			acc = carry
			accChars = carryChars
		}

		acc = append(acc, ln)
		accChars += lineChars
	}
	flush()

	return chunks, nil
}

// buildChunk assembles a chunk from accumulated lines, filling in location
// metadata, token count, and content hash.
func buildChunk(blobHash types.Hash, seq int, acc []line) types.Chunk {
	var sb strings.Builder
	for _, ln := range acc {
		sb.WriteString(ln.text)
	}
	c := types.Chunk{
		BlobHash:  blobHash,
		Seq:       seq,
		StartLine: acc[0].no,
		EndLine:   acc[len(acc)-1].no,
		Content:   sb.String(),
	}
	c.ComputeTokenCount()
	c.ComputeContentHash()
	return c
}

// splitLines splits content into lines, preserving the trailing newline on
// each line. The last segment is included even without one.
func splitLines(content string) []line {
	var lines []line
	no := 1
	for len(content) > 0 {
		idx := strings.IndexByte(content, '\n')
		if idx < 0 {
			lines = append(lines, line{text: content, no: no})
			break
		}
		lines = append(lines, line{text: content[:idx+1], no: no})
		content = content[idx+1:]
		no++
	}
	return lines
}

// overlapLines walks backward and returns the trailing lines whose total
// character count fits within the overlap budget.
func overlapLines(acc []line, overlapChars int) ([]line, int) {
	if overlapChars == 0 {
		return nil, 0
	}
	total := 0
	start := len(acc)
	for i := len(acc) - 1; i >= 0; i-- {
		n := len(acc[i].text)
		if total+n > overlapChars {
			break
		}
		total += n
		start = i
	}
	if start == len(acc) {
		return nil, 0
	}
	carried := make([]line, len(acc)-start)
	copy(carried, acc[start:])
	return carried, total
}
