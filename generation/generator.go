package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"docqa/model"
	"docqa/types"
)

// NoDocumentsContext stands in for the document block when nothing was
// retrieved.
const NoDocumentsContext = "No relevant information found in the knowledge base."

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

type Config struct {
	Temperature float64
	MaxTokens   int
}

// Generator turns a question plus retrieved context into an answer through
// the configured LLM.
type Generator struct {
	llm      model.LLM
	opts     model.Options
	encoding *tiktoken.Tiktoken
	logger   *slog.Logger
}

func NewGenerator(llm model.LLM, cfg Config) *Generator {
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	logger := slog.Default().With("component", "generator")

	// The encoding ships as an embedded table but some builds fetch it
	// lazily; treat failure as "no token accounting".
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("token encoding unavailable", "error", err)
		encoding = nil
	}

	return &Generator{
		llm:      llm,
		opts:     model.Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens},
		encoding: encoding,
		logger:   logger,
	}
}

// Generate produces an answer grounded in contextText. Backend errors are
// returned to the caller untouched.
func (g *Generator) Generate(ctx context.Context, question, contextText string, history []types.ChatMessage) (string, error) {
	messages := BuildMessages(question, contextText, history)
	g.logPromptSize(messages)

	answer, err := g.llm.Chat(ctx, messages, g.opts)
	if err != nil {
		g.logger.Error("generation failed", "error", err)
		return "", err
	}
	return answer, nil
}

// GenerateFromDocuments formats the documents into a context block and
// generates from it.
func (g *Generator) GenerateFromDocuments(ctx context.Context, question string, docs []types.Document, history []types.ChatMessage) (string, error) {
	return g.Generate(ctx, question, formatDocuments(docs), history)
}

// StreamGenerate is Generate with a streaming response.
func (g *Generator) StreamGenerate(ctx context.Context, question, contextText string, history []types.ChatMessage) (model.Stream, error) {
	messages := BuildMessages(question, contextText, history)
	g.logPromptSize(messages)

	stream, err := g.llm.ChatStream(ctx, messages, g.opts)
	if err != nil {
		g.logger.Error("stream generation failed", "error", err)
		return nil, err
	}
	return stream, nil
}

func formatDocuments(docs []types.Document) string {
	if len(docs) == 0 {
		return NoDocumentsContext
	}
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("--- Document %d (Source: %s) ---\n%s", i+1, doc.Source(), strings.TrimSpace(doc.Content))
	}
	return strings.Join(parts, "\n\n")
}

func (g *Generator) logPromptSize(messages []types.ChatMessage) {
	if g.encoding == nil {
		return
	}
	total := 0
	for _, m := range messages {
		total += len(g.encoding.Encode(m.Content, nil, nil))
	}
	g.logger.Debug("prompt assembled", "messages", len(messages), "tokens", total)
}
