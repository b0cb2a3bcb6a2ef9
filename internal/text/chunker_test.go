package text

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, ChunkText("", 100, 10))
	assert.Nil(t, ChunkText("   \n\t ", 100, 10))
}

func TestChunkText_ShortPageSingleSegment(t *testing.T) {
	chunks := ChunkText("A short page.", 1200, 150)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short page.", chunks[0])
}

func TestChunkText_SplitsAtSentenceBoundary(t *testing.T) {
	content := "First sentence is here. Second sentence follows it. Third one closes."
	chunks := ChunkText(content, 30, 0)

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], "."), "chunk %q should end at a sentence", chunks[0])
}

func TestChunkText_RespectsSizeLimit(t *testing.T) {
	content := strings.Repeat("word ", 500)
	chunks := ChunkText(content, 100, 20)

	for _, c := range chunks {
		assert.LessOrEqual(t, RuneLen(c), 100)
	}
}

func TestChunkText_OverlapCarriesContext(t *testing.T) {
	content := strings.Repeat("abcde ", 100)
	chunks := ChunkText(content, 60, 12)
	require.Greater(t, len(chunks), 1)

	// The tail of chunk N reappears at the head of chunk N+1.
	tail := chunks[0][len(chunks[0])-5:]
	assert.Contains(t, chunks[1][:20], strings.TrimSpace(tail))
}

func TestChunkText_LargeOverlapStillAdvances(t *testing.T) {
	// Sentence boundaries just under half the window pull splitPoint far
	// back; an overlap above that must not move the next start backwards.
	sentence := "Each sentence here sits close to half the window. "
	content := strings.TrimSpace(strings.Repeat(sentence, 40))

	done := make(chan []string, 1)
	go func() { done <- ChunkText(content, 100, 60) }()

	select {
	case chunks := <-done:
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, RuneLen(c), 100)
		}
		assert.Contains(t, chunks[len(chunks)-1], "half the window.")
	case <-time.After(3 * time.Second):
		t.Fatal("chunking stalled instead of advancing past the overlap")
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80)
	a := ChunkText(content, 300, 50)
	b := ChunkText(content, 300, 50)
	assert.Equal(t, a, b)
}

func TestChunkText_OrderPreserved(t *testing.T) {
	content := "alpha one two three. beta four five six. gamma seven eight nine. delta ten eleven twelve."
	chunks := ChunkText(content, 30, 0)

	joined := strings.Join(chunks, " ")
	assert.Less(t, strings.Index(joined, "alpha"), strings.Index(joined, "beta"))
	assert.Less(t, strings.Index(joined, "beta"), strings.Index(joined, "gamma"))
	assert.Less(t, strings.Index(joined, "gamma"), strings.Index(joined, "delta"))
}
