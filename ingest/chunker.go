package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docqa/types"
)

// DefaultSeparators is the split preference order: paragraph breaks first,
// then lines, sentence ends, words, and finally a hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits cleaned document text into overlapping windows bounded by
// ChunkSize, cutting on the most natural separator available in each window.
type Chunker struct {
	size       int
	overlap    int
	separators []string
	logger     *slog.Logger
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be in [0, chunk size %d)", overlap, size)
	}
	return &Chunker{
		size:       size,
		overlap:    overlap,
		separators: DefaultSeparators,
		logger:     slog.Default().With("component", "chunker"),
	}, nil
}

// Process cleans, splits and annotates a batch of documents. Chunk ids are
// assigned across the flattened output of the whole batch, starting at zero,
// so re-running over the same documents in the same order reproduces them.
// Empty input and documents that clean down to nothing are skipped with a
// log, never an error.
func (c *Chunker) Process(docs []types.Document) []types.Document {
	if len(docs) == 0 {
		c.logger.Warn("no documents to process")
		return []types.Document{}
	}

	chunks := make([]types.Document, 0, len(docs))
	for _, doc := range docs {
		content := CleanText(doc.Content)
		if content == "" {
			c.logger.Debug("skipping empty document", "source", doc.Source())
			continue
		}
		for _, piece := range c.SplitText(content) {
			chunk := doc.WithMetadata(map[string]any{
				types.MetaChunkID:   len(chunks),
				types.MetaChunkSize: utf8.RuneCountInString(piece),
			})
			chunk.Content = piece
			chunks = append(chunks, chunk)
		}
	}

	c.logger.Info("processed documents", "documents", len(docs), "chunks", len(chunks))
	return chunks
}

// CleanText collapses every whitespace run to a single space and trims the
// ends, so downstream sizing is stable regardless of source formatting.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitText cuts text into pieces of at most the configured size, measured
// in characters. Each cut lands on the highest-priority separator found in
// the window, and every piece after the first begins with the last overlap
// characters of its predecessor, copied verbatim.
func (c *Chunker) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		if len(runes)-start <= c.size {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		cut := c.cutPoint(runes[start : start+c.size])
		pieces = append(pieces, string(runes[start:start+cut]))
		start += cut - c.overlap
	}
	return pieces
}

// cutPoint picks the rightmost occurrence of the best available separator in
// the window, as a character offset. A cut is only usable if it advances
// past the copied overlap, otherwise the window would never move forward;
// when no separator qualifies the full window is taken.
func (c *Chunker) cutPoint(window []rune) int {
	w := string(window)
	for _, sep := range c.separators {
		if sep == "" {
			break
		}
		idx := strings.LastIndex(w, sep)
		if idx < 0 {
			continue
		}
		cut := utf8.RuneCountInString(w[:idx]) + utf8.RuneCountInString(sep)
		if cut > c.overlap {
			return cut
		}
	}
	return len(window)
}
