package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/store"
	"docqa/types"
)

// NoDocumentsFound is the context placeholder when retrieval comes back
// empty.
const NoDocumentsFound = "No relevant documents found."

const (
	DefaultMaxResults          = 5
	DefaultSimilarityThreshold = 0.7
)

type Config struct {
	MaxResults          int
	SimilarityThreshold float64
}

// Retriever fetches store matches for a query and keeps only those scoring
// at or above the similarity threshold.
type Retriever struct {
	store      store.VectorStore
	maxResults int
	threshold  float64
	logger     *slog.Logger
}

func NewRetriever(s store.VectorStore, cfg Config) *Retriever {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Retriever{
		store:      s,
		maxResults: cfg.MaxResults,
		threshold:  cfg.SimilarityThreshold,
		logger:     slog.Default().With("component", "retriever"),
	}
}

// Retrieve returns the matching documents without scores. A non-positive k
// falls back to the configured maximum.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]types.Document, error) {
	scored, err := r.RetrieveWithScores(ctx, query, k)
	if err != nil {
		return nil, err
	}
	docs := make([]types.Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}

// RetrieveWithScores searches the store and applies the threshold, keeping
// the store's descending score order.
func (r *Retriever) RetrieveWithScores(ctx context.Context, query string, k int) ([]types.ScoredDocument, error) {
	if k <= 0 {
		k = r.maxResults
	}
	candidates, err := r.store.Search(ctx, query, k, 0)
	if err != nil {
		return nil, err
	}

	results := make([]types.ScoredDocument, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < r.threshold {
			r.logger.Debug("dropped below threshold",
				"source", c.Source(), "score", c.Score, "threshold", r.threshold)
			continue
		}
		results = append(results, c)
	}
	r.logger.Debug("retrieved documents", "candidates", len(candidates), "kept", len(results))
	return results, nil
}

// FormatContext renders the documents into the numbered context block fed to
// the generator.
func (r *Retriever) FormatContext(docs []types.Document) string {
	if len(docs) == 0 {
		return NoDocumentsFound
	}
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("[Document %d] Source: %s\n%s", i+1, doc.Source(), strings.TrimSpace(doc.Content))
	}
	return strings.Join(parts, "\n\n")
}
