package app

import "strings"

// TextChunk is one token window of extracted text before embedding.
type TextChunk struct {
	Content    string
	TokenCount int
}

// Chunker splits text into fixed-size token windows with overlap, so content
// near a window boundary appears in both neighbours. Tokens are
// whitespace-delimited words.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker guards its parameters the same way the config validator does,
// so a Chunker built from unvalidated numbers still makes progress.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the token windows of text in order. Empty or
// whitespace-only text yields no chunks.
func (c *Chunker) Split(text string) []TextChunk {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]TextChunk, 0, len(tokens)/step+1)
	for start := 0; start < len(tokens); start += step {
		end := start + c.size
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, TextChunk{
			Content:    strings.Join(window, " "),
			TokenCount: len(window),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
