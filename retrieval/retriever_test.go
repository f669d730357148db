package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/store"
	"docqa/types"
)

// fakeStore replays canned search results and records the arguments it was
// called with.
type fakeStore struct {
	results []types.ScoredDocument
	err     error

	lastQuery     string
	lastK         int
	lastThreshold float64
}

var _ store.VectorStore = (*fakeStore)(nil)

func (f *fakeStore) Add(context.Context, []types.Document) error { return nil }

func (f *fakeStore) Search(_ context.Context, query string, k int, threshold float64) ([]types.ScoredDocument, error) {
	f.lastQuery = query
	f.lastK = k
	f.lastThreshold = threshold
	return f.results, f.err
}

func (f *fakeStore) Count(context.Context) (int, error) { return len(f.results), nil }
func (f *fakeStore) Reset(context.Context) error        { return nil }
func (f *fakeStore) Close() error                       { return nil }

func scored(content, source string, score float64) types.ScoredDocument {
	return types.ScoredDocument{
		Document: types.NewDocument(content, map[string]any{types.MetaSource: source}),
		Score:    score,
	}
}

func TestRetrieveWithScoresAppliesThreshold(t *testing.T) {
	fs := &fakeStore{results: []types.ScoredDocument{
		scored("a", "a.txt", 0.95),
		scored("b", "b.txt", 0.71),
		scored("c", "c.txt", 0.69),
		scored("d", "d.txt", 0.2),
	}}
	r := NewRetriever(fs, Config{MaxResults: 5, SimilarityThreshold: 0.7})

	results, err := r.RetrieveWithScores(context.Background(), "question", 4)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Content)
	assert.Equal(t, "b", results[1].Content)

	assert.Equal(t, "question", fs.lastQuery)
	assert.Equal(t, 4, fs.lastK)
	assert.Equal(t, 0.0, fs.lastThreshold, "filtering happens here, not in the store")
}

func TestRetrieveWithScoresRaisingThresholdNeverAddsResults(t *testing.T) {
	fs := &fakeStore{results: []types.ScoredDocument{
		scored("a", "a.txt", 0.9),
		scored("b", "b.txt", 0.75),
		scored("c", "c.txt", 0.5),
	}}

	prev := len(fs.results) + 1
	for _, threshold := range []float64{0.1, 0.6, 0.8, 0.95} {
		r := NewRetriever(fs, Config{MaxResults: 5, SimilarityThreshold: threshold})
		results, err := r.RetrieveWithScores(context.Background(), "q", 3)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), prev, "threshold %v", threshold)
		prev = len(results)
	}
}

func TestRetrieveDefaultsKToMaxResults(t *testing.T) {
	fs := &fakeStore{}
	r := NewRetriever(fs, Config{MaxResults: 7, SimilarityThreshold: 0.5})

	_, err := r.Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, fs.lastK)

	_, err = r.Retrieve(context.Background(), "q", -3)
	require.NoError(t, err)
	assert.Equal(t, 7, fs.lastK)

	_, err = r.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, fs.lastK)
}

func TestRetrieveDropsScores(t *testing.T) {
	fs := &fakeStore{results: []types.ScoredDocument{
		scored("first", "1.txt", 0.9),
		scored("second", "2.txt", 0.8),
	}}
	r := NewRetriever(fs, Config{MaxResults: 5, SimilarityThreshold: 0.7})

	docs, err := r.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first", docs[0].Content)
	assert.Equal(t, "1.txt", docs[0].Source())
	assert.Equal(t, "second", docs[1].Content)
}

func TestRetrievePropagatesStoreError(t *testing.T) {
	wantErr := errors.New("store down")
	r := NewRetriever(&fakeStore{err: wantErr}, Config{})

	_, err := r.RetrieveWithScores(context.Background(), "q", 3)
	assert.ErrorIs(t, err, wantErr)
}

func TestNewRetrieverDefaults(t *testing.T) {
	fs := &fakeStore{}
	r := NewRetriever(fs, Config{})
	assert.Equal(t, DefaultMaxResults, r.maxResults)
	assert.Equal(t, DefaultSimilarityThreshold, r.threshold)
}

func TestFormatContext(t *testing.T) {
	r := NewRetriever(&fakeStore{}, Config{})

	docs := []types.Document{
		types.NewDocument("  First chunk.  ", map[string]any{types.MetaSource: "guide.md"}),
		types.NewDocument("Second chunk.", map[string]any{types.MetaSource: "notes.txt"}),
	}
	got := r.FormatContext(docs)
	want := "[Document 1] Source: guide.md\nFirst chunk.\n\n[Document 2] Source: notes.txt\nSecond chunk."
	assert.Equal(t, want, got)
}

func TestFormatContextEmpty(t *testing.T) {
	r := NewRetriever(&fakeStore{}, Config{})
	assert.Equal(t, NoDocumentsFound, r.FormatContext(nil))
	assert.Equal(t, NoDocumentsFound, r.FormatContext([]types.Document{}))
}

func TestFormatContextUnknownSource(t *testing.T) {
	r := NewRetriever(&fakeStore{}, Config{})
	got := r.FormatContext([]types.Document{types.NewDocument("orphan", nil)})
	assert.Equal(t, "[Document 1] Source: Unknown\norphan", got)
}
