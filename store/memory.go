package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/model"
	"docqa/types"
)

// MemoryStore keeps documents and their embeddings in process memory. It
// suits tests and one-shot CLI runs where standing up Postgres is not worth
// the trouble. Contents do not survive the process.
type MemoryStore struct {
	embedder model.Embedder

	mu      sync.RWMutex
	entries []memoryEntry
}

type memoryEntry struct {
	doc types.Document
	vec []float32
}

var _ VectorStore = (*MemoryStore)(nil)

func NewMemoryStore(embedder model.Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (s *MemoryStore) Add(ctx context.Context, docs []types.Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		s.entries = append(s.entries, memoryEntry{doc: doc, vec: vectors[i]})
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, k int, threshold float64) ([]types.ScoredDocument, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]types.ScoredDocument, 0, len(s.entries))
	for _, e := range s.entries {
		score := cosineSimilarity(vec, e.vec)
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		if threshold > 0 && score < threshold {
			continue
		}
		results = append(results, types.ScoredDocument{Document: e.doc, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
