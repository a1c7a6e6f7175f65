package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{
			name:       "empty text",
			text:       "",
			chunkSize:  512,
			overlap:    128,
			wantChunks: 0,
		},
		{
			name:       "shorter than one chunk",
			text:       "hello world",
			chunkSize:  512,
			overlap:    128,
			wantChunks: 1,
		},
		{
			name:       "exactly one chunk",
			text:       strings.Repeat("a", 512),
			chunkSize:  512,
			overlap:    128,
			wantChunks: 1,
		},
		{
			// 1000 chars, step 384: windows at 0, 384, 768
			name:       "three overlapping windows",
			text:       strings.Repeat("a", 1000),
			chunkSize:  512,
			overlap:    128,
			wantChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(tt.chunkSize, tt.overlap)
			chunks := s.Split(tt.text)
			assert.Len(t, chunks, tt.wantChunks)
			for _, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), tt.chunkSize)
			}
		})
	}
}

func TestSplitOverlapContent(t *testing.T) {
	s := NewSplitter(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz"

	chunks := s.Split(text)
	assert.GreaterOrEqual(t, len(chunks), 2)

	// Consecutive windows share the overlap region.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-4:])
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d should start with the previous chunk's overlap", i)
	}

	// Every character of the input appears in chunk order.
	assert.True(t, strings.HasPrefix(chunks[0], "abcdefghij"))
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(last, "z"))
}

func TestSplitUnicodeSafe(t *testing.T) {
	s := NewSplitter(4, 1)
	text := "héllо wörld ünïcodé"

	chunks := s.Split(text)
	assert.NotEmpty(t, chunks)
	// Rune-based windows never cut a multibyte character in half.
	joined := strings.Join(chunks, "")
	assert.True(t, strings.Contains(joined, "ö"))
}
