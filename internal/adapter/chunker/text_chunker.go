package chunker

import (
	"fmt"
	"unicode"

	"finrag/internal/domain"
)

// TextChunker splits free-form text into overlapping bounded segments.
// chunkSize is a soft upper bound in characters; overlap is how many
// trailing characters of one chunk recur at the start of the next.
type TextChunker struct {
	chunkSize int
	overlap   int
}

// NewTextChunker validates the chunking parameters up front.
func NewTextChunker(chunkSize, overlap int) (*TextChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidConfig, overlap, chunkSize)
	}
	return &TextChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split chunks text into an ordered sequence. Each chunk is an exact
// slice of the input: chunk i starts overlap characters before chunk
// i-1 ends, so concatenating chunk 0 with every later chunk minus its
// first overlap characters reconstructs the input. Splitting prefers a
// paragraph break, then any whitespace, inside a window before the
// size bound, falling back to a hard cut. Deterministic for a given
// input. Empty input yields no chunks.
func (c *TextChunker) Split(text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			Text:  string(runes[start:end]),
			Index: len(chunks),
		})

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}

// breakPoint searches backwards from the hard bound for a friendlier
// split position. A candidate is only accepted if it leaves the chunk
// longer than the overlap, so the next chunk always starts past the
// current one.
func (c *TextChunker) breakPoint(runes []rune, start, end int) int {
	window := c.chunkSize / 4
	limit := end - window
	if min := start + c.overlap + 1; limit < min {
		limit = min
	}

	// Paragraph break first: cut after the blank line.
	for i := end - 1; i > limit; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// Otherwise any whitespace: cut after it.
	for i := end - 1; i >= limit; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

// ChunkSize returns the configured soft size bound.
func (c *TextChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap length.
func (c *TextChunker) Overlap() int { return c.overlap }
