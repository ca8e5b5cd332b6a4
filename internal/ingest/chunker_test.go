package ingest

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, text string, cfg ChunkConfig) []string {
	t.Helper()
	seq, err := Split(text, cfg)
	require.NoError(t, err)
	var out []string
	for piece := range seq {
		out = append(out, piece)
	}
	return out
}

func TestSplitShortTextYieldsSinglePiece(t *testing.T) {
	pieces := collect(t, "tiny transcript", ChunkConfig{Size: 1000, Overlap: 200})
	require.Len(t, pieces, 1)
	assert.Equal(t, "tiny transcript", pieces[0])
}

func TestSplitWindowsOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 runes
	cfg := ChunkConfig{Size: 100, Overlap: 20}
	pieces := collect(t, text, cfg)
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		prev := []rune(pieces[i-1])
		cur := []rune(pieces[i])
		tail := string(prev[len(prev)-cfg.Overlap:])
		head := string(cur[:cfg.Overlap])
		assert.Equal(t, tail, head, "window %d does not overlap its predecessor", i)
	}
}

func TestSplitReconstructsOriginalText(t *testing.T) {
	text := strings.Repeat("qualitative research synthesis ", 40)
	cfg := ChunkConfig{Size: 120, Overlap: 30}
	pieces := collect(t, text, cfg)

	var b strings.Builder
	step := cfg.Size - cfg.Overlap
	for i, piece := range pieces {
		runes := []rune(piece)
		if i == len(pieces)-1 {
			b.WriteString(piece)
			break
		}
		b.WriteString(string(runes[:step]))
	}
	assert.Equal(t, text, b.String())
}

func TestSplitIsRestartable(t *testing.T) {
	text := strings.Repeat("x", 300)
	seq, err := Split(text, ChunkConfig{Size: 100, Overlap: 10})
	require.NoError(t, err)

	var first, second []string
	for p := range seq {
		first = append(first, p)
	}
	for p := range seq {
		second = append(second, p)
	}
	assert.Equal(t, first, second)
}

func TestSplitMultiByteSafety(t *testing.T) {
	text := strings.Repeat("日本語のテキスト", 100)
	pieces := collect(t, text, ChunkConfig{Size: 50, Overlap: 10})
	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.True(t, utf8.ValidString(p))
		assert.NotContains(t, p, "�")
	}
}

func TestSplitRejectsInvalidConfig(t *testing.T) {
	cases := []ChunkConfig{
		{Size: 0, Overlap: 10},
		{Size: -5, Overlap: 1},
		{Size: 100, Overlap: 0},
		{Size: 100, Overlap: 100},
		{Size: 100, Overlap: 150},
	}
	for _, cfg := range cases {
		_, err := Split("whatever", cfg)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration), "config %+v", cfg)
	}
}

func TestChunkDocumentOrdering(t *testing.T) {
	text := strings.Repeat("z", 450)
	chunks, err := ChunkDocument("interview_01.txt", text, ChunkConfig{Size: 200, Overlap: 50})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceIndex)
		assert.Equal(t, "interview_01.txt", c.SourceDocument)
	}
}
