package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

func testHash() types.Hash {
	return types.HashBytes([]byte("test blob"))
}

// sourceLines builds n lines of roughly uniform width.
func sourceLines(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %04d: some representative source text\n", i)
	}
	return sb.String()
}

func TestChunk_EmptyContent(t *testing.T) {
	chunks, err := Chunk(testHash(), nil, DefaultMaxTokens, DefaultOverlapTokens)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_SmallContentSingleChunk(t *testing.T) {
	content := []byte("package main\n\nfunc main() {}\n")
	chunks, err := Chunk(testHash(), content, DefaultMaxTokens, DefaultOverlapTokens)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, 0, c.Seq)
	assert.Equal(t, 1, c.StartLine)
	assert.Equal(t, 3, c.EndLine)
	assert.Equal(t, string(content), c.Content)
	assert.Equal(t, types.HashString(c.Content), c.ContentHash)
	require.NoError(t, c.Validate())
}

func TestChunk_BinaryRejected(t *testing.T) {
	_, err := Chunk(testHash(), []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01}, DefaultMaxTokens, 0)
	require.ErrorIs(t, err, types.ErrUnchunkable)

	_, err = Chunk(testHash(), []byte{0xff, 0xfe, 0x41}, DefaultMaxTokens, 0)
	require.ErrorIs(t, err, types.ErrUnchunkable)
}

func TestChunk_Deterministic(t *testing.T) {
	content := []byte(sourceLines(200))
	a, err := Chunk(testHash(), content, 100, 20)
	require.NoError(t, err)
	b, err := Chunk(testHash(), content, 100, 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestChunk_CoverageNoGaps(t *testing.T) {
	cases := []struct {
		maxTokens int
		overlap   int
	}{
		{50, 0},
		{50, 10},
		{100, 20},
		{100, 49},
		{400, 80},
	}
	content := []byte(sourceLines(300))
	totalLines := 300

	for _, tc := range cases {
		t.Run(fmt.Sprintf("max%d_overlap%d", tc.maxTokens, tc.overlap), func(t *testing.T) {
			chunks, err := Chunk(testHash(), content, tc.maxTokens, tc.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, 1, chunks[0].StartLine)
			assert.Equal(t, totalLines, chunks[len(chunks)-1].EndLine)

			for i, c := range chunks {
				assert.Equal(t, i, c.Seq)
				assert.LessOrEqual(t, c.TokenCount, tc.maxTokens,
					"chunk %d exceeds token budget", i)
				if i > 0 {
					prev := chunks[i-1]
					// Non-decreasing starts, no skipped lines.
					assert.GreaterOrEqual(t, c.StartLine, prev.StartLine)
					assert.LessOrEqual(t, c.StartLine, prev.EndLine+1,
						"gap between chunk %d and %d", i-1, i)
				}
			}
		})
	}
}

func TestChunk_OverlapRepeatsPredecessorLines(t *testing.T) {
	content := []byte(sourceLines(100))
	chunks, err := Chunk(testHash(), content, 100, 30)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.StartLine > prev.EndLine {
			continue // no overlap carried for this boundary
		}
		// The overlapping region must be verbatim predecessor text.
		assert.True(t, strings.HasSuffix(prev.Content, overlapText(cur, prev)),
			"overlap between chunk %d and %d is not verbatim", i-1, i)
	}
}

// overlapText extracts cur's leading lines that fall inside prev's range.
func overlapText(cur, prev types.Chunk) string {
	shared := prev.EndLine - cur.StartLine + 1
	lines := strings.SplitAfter(cur.Content, "\n")
	if shared > len(lines) {
		shared = len(lines)
	}
	return strings.Join(lines[:shared], "")
}

func TestChunk_OverlapClampedToHalfBudget(t *testing.T) {
	content := []byte(sourceLines(100))

	// An overlap larger than maxTokens/2 behaves as if it were maxTokens/2.
	big, err := Chunk(testHash(), content, 100, 90)
	require.NoError(t, err)
	clamped, err := Chunk(testHash(), content, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, clamped, big)
}

func TestChunk_OversizedLineBecomesOwnChunk(t *testing.T) {
	long := strings.Repeat("x", 1000)
	content := []byte("short first line\n" + long + "\nshort last line\n")

	chunks, err := Chunk(testHash(), content, 50, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 2, chunks[1].StartLine)
	assert.Equal(t, 2, chunks[1].EndLine)
	assert.Equal(t, long+"\n", chunks[1].Content)
}

func TestChunk_InvalidMaxTokens(t *testing.T) {
	_, err := Chunk(testHash(), []byte("text\n"), 0, 0)
	require.Error(t, err)
}
