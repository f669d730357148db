package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentSource(t *testing.T) {
	doc := NewDocument("text", map[string]any{MetaSource: "notes.txt"})
	assert.Equal(t, "notes.txt", doc.Source())

	assert.Equal(t, UnknownSource, NewDocument("text", nil).Source())
	assert.Equal(t, UnknownSource, NewDocument("text", map[string]any{MetaSource: ""}).Source())
	assert.Equal(t, UnknownSource, NewDocument("text", map[string]any{MetaSource: 7}).Source())
}

func TestDocumentChunkID(t *testing.T) {
	doc := NewDocument("text", map[string]any{MetaChunkID: 3})
	assert.Equal(t, 3, doc.ChunkID())
	assert.Equal(t, -1, NewDocument("text", nil).ChunkID())
}

func TestDocumentChunkSize(t *testing.T) {
	assert.Equal(t, 9, NewDocument("some text", nil).ChunkSize())
	assert.Equal(t, 42, NewDocument("x", map[string]any{MetaChunkSize: 42}).ChunkSize())

	// fallback counts characters, not bytes
	assert.Equal(t, 3, NewDocument("日本語", nil).ChunkSize())
}

func TestWithMetadataDoesNotMutateReceiver(t *testing.T) {
	original := NewDocument("text", map[string]any{MetaSource: "a.txt"})
	derived := original.WithMetadata(map[string]any{MetaChunkID: 0, MetaSource: "b.txt"})

	assert.Equal(t, "a.txt", original.Source())
	require.NotContains(t, original.Metadata, MetaChunkID)

	assert.Equal(t, "b.txt", derived.Source())
	assert.Equal(t, 0, derived.ChunkID())
}

func TestQueryRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     QueryRequest
		wantErr bool
	}{
		{"valid", QueryRequest{Question: "what is this?"}, false},
		{"missing question", QueryRequest{}, true},
		{"k too large", QueryRequest{Question: "q", K: 50}, true},
		{"k negative", QueryRequest{Question: "q", K: -1}, true},
		{"bad history role", QueryRequest{Question: "q", History: []ChatMessage{{Role: "owner", Content: "hi"}}}, true},
		{"valid history", QueryRequest{Question: "q", History: []ChatMessage{{Role: RoleUser, Content: "hi"}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := Validate(&tc.req)
			if tc.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}
