package model

import (
	"context"
	"errors"
	"fmt"

	"docqa/types"
)

// Provider names accepted by the factories.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Embedder turns text into vectors for similarity comparison.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM generates text from chat messages. Each implementation shapes the
// messages for its wire format: the hosted backend sends them structured,
// the local one flattens them into a single prompt.
type LLM interface {
	Chat(ctx context.Context, messages []types.ChatMessage, opts Options) (string, error)
	ChatStream(ctx context.Context, messages []types.ChatMessage, opts Options) (Stream, error)
}

// Options are per-call generation knobs.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Stream is a pull-based sequence of generated fragments. Recv blocks until
// the next fragment is available and reports done=true (with an empty
// fragment) once the backend finishes. Abandoning a stream early just means
// calling Close without draining it.
type Stream interface {
	Recv() (fragment string, done bool, err error)
	Close() error
}

// Config carries the settings both factories pick from.
type Config struct {
	Provider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	OllamaBaseURL string
	OllamaModel   string

	EmbeddingModel string
}

// NewLLM selects the generation backend. Unknown providers and a missing
// OpenAI key fail construction, never mid-request.
func NewLLM(cfg Config) (LLM, error) {
	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaClient(OllamaConfig{
			BaseURL:    cfg.OllamaBaseURL,
			Model:      cfg.OllamaModel,
			EmbedModel: cfg.EmbeddingModel,
		}), nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("openai api key is required")
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			EmbedModel: cfg.EmbeddingModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewEmbedder selects the embedding backend.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaClient(OllamaConfig{
			BaseURL:    cfg.OllamaBaseURL,
			Model:      cfg.OllamaModel,
			EmbedModel: cfg.EmbeddingModel,
		}), nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("openai api key is required")
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			EmbedModel: cfg.EmbeddingModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewStaticStream wraps fixed fragments in a Stream, for responses that are
// known up front.
func NewStaticStream(fragments ...string) Stream {
	return &staticStream{fragments: fragments}
}

type staticStream struct {
	fragments []string
	pos       int
}

func (s *staticStream) Recv() (string, bool, error) {
	if s.pos >= len(s.fragments) {
		return "", true, nil
	}
	fragment := s.fragments[s.pos]
	s.pos++
	return fragment, false, nil
}

func (s *staticStream) Close() error { return nil }
