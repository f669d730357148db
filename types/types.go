package types

import "unicode/utf8"

// Metadata keys attached to documents on their way through the pipeline.
// Loaders set MetaSource (and MetaPage for paged formats); the chunker adds
// MetaChunkID and MetaChunkSize to every chunk it emits.
const (
	MetaSource    = "source"
	MetaPage      = "page"
	MetaChunkID   = "chunk_id"
	MetaChunkSize = "chunk_size"
)

// UnknownSource is reported for documents that carry no source metadata.
const UnknownSource = "Unknown"

// Document is the unit of text flowing through the pipeline. Loaders produce
// whole-file documents, the chunker derives bounded child documents from them
// and the originals are discarded.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func NewDocument(content string, metadata map[string]any) Document {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return Document{Content: content, Metadata: metadata}
}

// Source returns the origin path recorded by the loader, or UnknownSource.
func (d Document) Source() string {
	if s, ok := d.Metadata[MetaSource].(string); ok && s != "" {
		return s
	}
	return UnknownSource
}

// ChunkID returns the batch-wide chunk index, or -1 before chunking.
func (d Document) ChunkID() int {
	if id, ok := d.Metadata[MetaChunkID].(int); ok {
		return id
	}
	return -1
}

// ChunkSize returns the recorded chunk length in characters, falling back to
// the actual content length for documents that never went through the
// chunker.
func (d Document) ChunkSize() int {
	if n, ok := d.Metadata[MetaChunkSize].(int); ok {
		return n
	}
	return utf8.RuneCountInString(d.Content)
}

// WithMetadata returns a copy of the document with extra metadata merged in.
// The receiver's metadata map is left untouched.
func (d Document) WithMetadata(extra map[string]any) Document {
	merged := make(map[string]any, len(d.Metadata)+len(extra))
	for k, v := range d.Metadata {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return Document{Content: d.Content, Metadata: merged}
}

// ScoredDocument pairs a retrieved document with its similarity score in [0,1].
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role    Role   `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}
