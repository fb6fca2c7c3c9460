package documents

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits extracted text into overlapping, bounded-size chunks.
// Split points prefer the largest structural boundary available inside the
// window: paragraph break first, then sentence end, then a hard cut.
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker creates a new chunker
func NewChunker(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	// the walk advances by at least maxSize-overlap per chunk; an overlap
	// at or beyond half the window would crawl, so fall back to a sane ratio
	if overlap*2 >= maxSize {
		overlap = maxSize / 4
	}
	return &Chunker{
		maxSize: maxSize,
		overlap: overlap,
	}
}

// Split splits text into chunks of at most maxSize bytes. Each chunk after
// the first starts overlap bytes inside the previous chunk's tail, so
// context that straddles a split point appears in both chunks. The full
// input is covered and the output is deterministic for identical input.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.maxSize {
		return []string{text}
	}

	var chunks []string
	pos := 0
	for {
		end := pos + c.maxSize
		if end >= len(text) {
			chunks = append(chunks, text[pos:])
			return chunks
		}

		cut := c.splitPoint(text, pos, end)
		chunks = append(chunks, text[pos:cut])

		next := runeStart(text, cut-c.overlap)
		if next <= pos {
			// rewinding to a rune boundary must never stall the walk
			next = cut
		}
		pos = next
	}
}

// splitPoint picks where the chunk starting at pos should end. Candidate
// boundaries must sit at least overlap+utf8.UTFMax past pos: the next chunk
// starts overlap bytes before the cut, rounded down to a rune boundary, and
// that rounding must not be able to reach pos or the walk would stall.
func (c *Chunker) splitPoint(text string, pos, end int) int {
	min := pos + c.overlap + utf8.UTFMax

	window := text[pos:end]
	if i := strings.LastIndex(window, "\n\n"); i >= 0 && pos+i+2 >= min {
		return pos + i + 2
	}
	if i := lastSentenceEnd(window); i >= 0 && pos+i >= min {
		return pos + i
	}
	if cut := runeStart(text, end); cut > pos {
		return cut
	}
	return end
}

// lastSentenceEnd returns the index just past the last sentence-ending
// punctuation in s, or -1 if there is none.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if (s[i] == ' ' || s[i] == '\n') && isSentenceEnd(s[i-1]) {
			return i + 1
		}
	}
	return -1
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// runeStart moves i down to the nearest UTF-8 rune boundary so cuts never
// split a multi-byte character.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
