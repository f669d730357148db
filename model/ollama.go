package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"docqa/types"
)

const (
	DefaultOllamaBaseURL    = "http://localhost:11434"
	DefaultOllamaModel      = "llama3.2"
	DefaultOllamaEmbedModel = "nomic-embed-text"
)

// OllamaClient talks to a local Ollama server. It serves both roles: text
// generation over /api/generate and embeddings over /api/embeddings.
type OllamaClient struct {
	baseURL    string
	model      string
	embedModel string
	httpClient *http.Client
}

var (
	_ LLM      = (*OllamaClient)(nil)
	_ Embedder = (*OllamaClient)(nil)
)

type OllamaConfig struct {
	BaseURL    string
	Model      string
	EmbedModel string
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultOllamaEmbedModel
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		httpClient: &http.Client{},
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Chat flattens the messages into Ollama's system+prompt form and returns
// the full completion.
func (c *OllamaClient) Chat(ctx context.Context, messages []types.ChatMessage, opts Options) (string, error) {
	resp, err := c.generate(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Response, nil
}

// ChatStream issues the same call with streaming enabled; fragments arrive
// as NDJSON objects that the returned Stream decodes one Recv at a time.
func (c *OllamaClient) ChatStream(ctx context.Context, messages []types.ChatMessage, opts Options) (Stream, error) {
	resp, err := c.generate(ctx, messages, opts, true)
	if err != nil {
		return nil, err
	}
	return &ollamaStream{body: resp.Body, decoder: json.NewDecoder(resp.Body)}, nil
}

func (c *OllamaClient) generate(ctx context.Context, messages []types.ChatMessage, opts Options, stream bool) (*http.Response, error) {
	system, prompt := flattenMessages(messages)
	req := ollamaGenerateRequest{
		Model:  c.model,
		System: system,
		Prompt: prompt,
		Stream: stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}
	return c.post(ctx, "/api/generate", req)
}

type ollamaStream struct {
	body    io.ReadCloser
	decoder *json.Decoder
	done    bool
}

func (s *ollamaStream) Recv() (string, bool, error) {
	if s.done {
		return "", true, nil
	}
	var chunk ollamaGenerateResponse
	if err := s.decoder.Decode(&chunk); err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return "", true, nil
		}
		return "", false, fmt.Errorf("decode stream chunk: %w", err)
	}
	if chunk.Done {
		s.done = true
		if chunk.Response == "" {
			return "", true, nil
		}
	}
	return chunk.Response, false, nil
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns a unit-normalized vector for the text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.post(ctx, "/api/embeddings", ollamaEmbeddingRequest{
		Model:  c.embedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}

	norm := normalize64(out.Embedding)
	embedding := make([]float32, len(norm))
	for i, v := range norm {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// EmbedBatch embeds texts one by one; the Ollama embeddings endpoint takes a
// single prompt per call.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(msg))
	}
	return resp, nil
}

// flattenMessages folds a chat sequence into Ollama's generate form: system
// turns feed the system field, everything else becomes a transcript. A lone
// user message passes through verbatim.
func flattenMessages(messages []types.ChatMessage) (system, prompt string) {
	var sys, turns []string
	var lastUser string
	userOnly := true
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			sys = append(sys, m.Content)
		case types.RoleUser:
			turns = append(turns, "User: "+m.Content)
			lastUser = m.Content
		default:
			turns = append(turns, "Assistant: "+m.Content)
			userOnly = false
		}
	}
	system = strings.Join(sys, "\n\n")
	if userOnly && len(turns) == 1 {
		return system, lastUser
	}
	return system, strings.Join(turns, "\n\n") + "\n\nAssistant:"
}

// normalize64 scales a vector to unit length in place.
func normalize64(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
