package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"docqa/model"
	"docqa/store"
	"docqa/types"
)

// NoRelevantInformation is the canned answer when retrieval finds nothing
// above the similarity threshold. The LLM is not consulted in that case.
const NoRelevantInformation = "I couldn't find any relevant information to answer your question."

// Stats describes the current corpus.
type Stats struct {
	DocumentsInStore int `json:"documents_in_store"`
	SourceFiles      int `json:"source_files"`
}

type Loader interface {
	LoadDocument(path string) ([]types.Document, error)
	LoadDirectory() ([]types.Document, error)
	FileCount() int
}

type Chunker interface {
	Process(docs []types.Document) []types.Document
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]types.Document, error)
	FormatContext(docs []types.Document) string
}

type Generator interface {
	GenerateFromDocuments(ctx context.Context, question string, docs []types.Document, history []types.ChatMessage) (string, error)
	StreamGenerate(ctx context.Context, question, contextText string, history []types.ChatMessage) (model.Stream, error)
}

// Pipeline wires loading, chunking, storage, retrieval and generation into
// the two top-level flows: ingesting documents and answering questions.
type Pipeline struct {
	loader    Loader
	chunker   Chunker
	store     store.VectorStore
	retriever Retriever
	generator Generator
	logger    *slog.Logger
}

func New(loader Loader, chunker Chunker, vs store.VectorStore, retriever Retriever, generator Generator) *Pipeline {
	return &Pipeline{
		loader:    loader,
		chunker:   chunker,
		store:     vs,
		retriever: retriever,
		generator: generator,
		logger:    slog.Default().With("component", "pipeline"),
	}
}

// Ingest loads one file (or the whole documents directory when filePath is
// empty), chunks the result and writes it to the vector store. It returns
// the number of chunks ingested.
func (p *Pipeline) Ingest(ctx context.Context, filePath string, reset bool) (int, error) {
	if reset {
		if err := p.store.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset vector store: %w", err)
		}
	}

	var docs []types.Document
	var err error
	if filePath != "" {
		docs, err = p.loader.LoadDocument(filePath)
	} else {
		docs, err = p.loader.LoadDirectory()
	}
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		p.logger.Warn("nothing to ingest", "path", filePath)
		return 0, nil
	}

	chunks := p.chunker.Process(docs)
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := p.store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("add documents to vector store: %w", err)
	}

	p.logger.Info("ingest complete", "documents", len(docs), "chunks", len(chunks))
	return len(chunks), nil
}

// Query answers the question from the stored corpus. A non-positive k uses
// the retriever's configured maximum. When nothing relevant is found it
// returns the canned answer with an empty source list and no error.
func (p *Pipeline) Query(ctx context.Context, question string, k int, history []types.ChatMessage) (string, []types.Document, error) {
	p.logger.Info("query received", "question", truncate(question, 100))

	docs, err := p.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve documents: %w", err)
	}
	if len(docs) == 0 {
		p.logger.Info("no documents above threshold")
		return NoRelevantInformation, []types.Document{}, nil
	}

	answer, err := p.generator.GenerateFromDocuments(ctx, question, docs, history)
	if err != nil {
		return "", nil, err
	}
	return answer, docs, nil
}

// StreamQuery is Query with a streaming answer. The canned no-results answer
// arrives as a single-fragment stream.
func (p *Pipeline) StreamQuery(ctx context.Context, question string, k int, history []types.ChatMessage) (model.Stream, []types.Document, error) {
	p.logger.Info("stream query received", "question", truncate(question, 100))

	docs, err := p.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve documents: %w", err)
	}
	if len(docs) == 0 {
		p.logger.Info("no documents above threshold")
		return model.NewStaticStream(NoRelevantInformation), []types.Document{}, nil
	}

	contextText := p.retriever.FormatContext(docs)
	stream, err := p.generator.StreamGenerate(ctx, question, contextText, history)
	if err != nil {
		return nil, nil, err
	}
	return stream, docs, nil
}

func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	count, err := p.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	return Stats{
		DocumentsInStore: count,
		SourceFiles:      p.loader.FileCount(),
	}, nil
}

// ResetVectorStore drops everything from the store.
func (p *Pipeline) ResetVectorStore(ctx context.Context) error {
	p.logger.Warn("resetting vector store")
	if err := p.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset vector store: %w", err)
	}
	p.logger.Info("vector store reset")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
