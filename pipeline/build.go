package pipeline

import (
	"context"
	"fmt"

	"docqa/config"
	"docqa/generation"
	"docqa/ingest"
	"docqa/model"
	"docqa/retrieval"
	"docqa/store"
)

// Build assembles a Pipeline from settings. The store is returned separately
// so the caller can close it on shutdown.
func Build(ctx context.Context, cfg *config.Settings) (*Pipeline, store.VectorStore, error) {
	embedder, err := model.NewEmbedder(model.Config{
		Provider:       cfg.EmbeddingProvider,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		OllamaBaseURL:  cfg.OllamaBaseURL,
		OllamaModel:    cfg.OllamaModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create embedder: %w", err)
	}

	llm, err := model.NewLLM(model.Config{
		Provider:       cfg.LLMProvider,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		OllamaBaseURL:  cfg.OllamaBaseURL,
		OllamaModel:    cfg.OllamaModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create llm: %w", err)
	}

	var vs store.VectorStore
	switch cfg.VectorStore {
	case config.StorePostgres:
		vs, err = store.NewPostgresStore(ctx, store.PostgresConfig{
			ConnString: cfg.PGConnString(),
			Collection: cfg.CollectionName,
			Dimensions: cfg.EmbeddingDimensions,
		}, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("create vector store: %w", err)
		}
	default:
		vs = store.NewMemoryStore(embedder)
	}

	chunker, err := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		vs.Close()
		return nil, nil, fmt.Errorf("create chunker: %w", err)
	}

	loader := ingest.NewLoader(cfg.DocumentsPath)
	retriever := retrieval.NewRetriever(vs, retrieval.Config{
		MaxResults:          cfg.MaxResults,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})
	generator := generation.NewGenerator(llm, generation.Config{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})

	return New(loader, chunker, vs, retriever, generator), vs, nil
}
