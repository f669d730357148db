package store

import (
	"context"

	"docqa/types"
)

// DefaultBatchSize is how many documents are embedded and written per round
// trip when adding to a store.
const DefaultBatchSize = 100

// VectorStore persists documents with their embeddings and answers
// similarity queries. Implementations embed text themselves, so callers only
// ever pass plain documents and query strings. Backing resources are created
// lazily on first use; constructing a store must not mutate the backend.
type VectorStore interface {
	// Add embeds and stores the documents.
	Add(ctx context.Context, docs []types.Document) error

	// Search returns up to k documents most similar to the query, best
	// first. Results scoring below threshold are dropped; a zero threshold
	// keeps everything.
	Search(ctx context.Context, query string, k int, threshold float64) ([]types.ScoredDocument, error)

	// Count reports how many documents the store holds.
	Count(ctx context.Context) (int, error)

	// Reset drops all stored documents. The store stays usable afterwards.
	Reset(ctx context.Context) error

	// Close releases backing resources.
	Close() error
}
