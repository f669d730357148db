package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Provider and store names accepted in the environment.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Settings is read once from the environment at startup and handed to each
// component at construction. Nothing mutates it afterwards.
type Settings struct {
	LLMProvider       string `validate:"oneof=openai ollama"`
	EmbeddingProvider string `validate:"oneof=openai ollama"`

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	OllamaBaseURL string
	OllamaModel   string

	// EmbeddingModel applies to whichever embedding provider is selected;
	// the default suits Ollama, OpenAI users set e.g. text-embedding-3-small.
	EmbeddingModel      string `validate:"required"`
	EmbeddingDimensions int    `validate:"min=1"`

	VectorStore    string `validate:"oneof=postgres memory"`
	CollectionName string `validate:"required"`
	PGHost         string
	PGPort         int
	PGUser         string
	PGPass         string
	PGDBName       string

	DocumentsPath string `validate:"required"`

	ChunkSize    int `validate:"min=100,max=4000"`
	ChunkOverlap int `validate:"min=0,max=1000"`

	MaxResults          int     `validate:"min=1,max=20"`
	SimilarityThreshold float64 `validate:"min=0,max=1"`

	Temperature float64 `validate:"min=0,max=2"`
	MaxTokens   int     `validate:"min=1"`

	ListenAddr string `validate:"required"`
	LogLevel   string `validate:"oneof=debug info warn error"`

	WatchEnabled  bool
	WatchInterval time.Duration
	WatchSettle   time.Duration
}

// collectionRe keeps the collection name safe to use as a table identifier.
var collectionRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Load reads settings from the environment, applies defaults and fails fast
// on anything invalid. The documents directory is created if absent.
func Load() (*Settings, error) {
	r := &envReader{}

	s := &Settings{
		LLMProvider:       r.str("LLM_PROVIDER", ProviderOllama),
		EmbeddingProvider: r.str("EMBEDDING_PROVIDER", ProviderOllama),

		OpenAIAPIKey:  r.str("OPENAI_API_KEY", ""),
		OpenAIModel:   r.str("OPENAI_MODEL", "gpt-4-turbo-preview"),
		OpenAIBaseURL: r.str("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		OllamaBaseURL: r.str("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   r.str("OLLAMA_MODEL", "llama3.2"),

		EmbeddingModel:      r.str("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingDimensions: r.num("EMBEDDING_DIMENSIONS", 768),

		VectorStore:    r.str("VECTOR_STORE", StorePostgres),
		CollectionName: r.str("COLLECTION_NAME", "documents"),
		PGHost:         r.str("PG_HOST", "localhost"),
		PGPort:         r.num("PG_PORT", 5432),
		PGUser:         r.str("PG_USER", "postgres"),
		PGPass:         r.str("PG_PASS", "postgres"),
		PGDBName:       r.str("PG_DB_NAME", "docqa"),

		DocumentsPath: r.str("DOCUMENTS_PATH", "./data/documents"),

		ChunkSize:    r.num("CHUNK_SIZE", 1000),
		ChunkOverlap: r.num("CHUNK_OVERLAP", 200),

		MaxResults:          r.num("MAX_RESULTS", 5),
		SimilarityThreshold: r.float("SIMILARITY_THRESHOLD", 0.7),

		Temperature: r.float("TEMPERATURE", 0.7),
		MaxTokens:   r.num("MAX_TOKENS", 1000),

		ListenAddr: r.str("LISTEN_ADDR", ":3000"),
		LogLevel:   strings.ToLower(r.str("LOG_LEVEL", "info")),

		WatchEnabled:  r.boolean("WATCH_ENABLED", false),
		WatchInterval: r.duration("WATCH_INTERVAL", 5*time.Second),
		WatchSettle:   r.duration("WATCH_SETTLE", 10*time.Second),
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := validator.New().Struct(s); err != nil {
		errs := err.(validator.ValidationErrors)
		fields := make([]string, len(errs))
		for i, e := range errs {
			fields[i] = fmt.Sprintf("%s failed on '%s'", e.Field(), e.Tag())
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(fields, "; "))
	}

	if s.ChunkOverlap >= s.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", s.ChunkOverlap, s.ChunkSize)
	}
	if !collectionRe.MatchString(s.CollectionName) {
		return nil, fmt.Errorf("COLLECTION_NAME %q must match %s", s.CollectionName, collectionRe)
	}
	if (s.LLMProvider == ProviderOpenAI || s.EmbeddingProvider == ProviderOpenAI) && s.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when a provider is %q", ProviderOpenAI)
	}

	if err := os.MkdirAll(s.DocumentsPath, 0o755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}

	return s, nil
}

// PGConnString assembles the pgx connection string the way the store expects.
func (s *Settings) PGConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		s.PGHost, s.PGPort, s.PGUser, s.PGPass, s.PGDBName)
}

// SlogLevel maps LogLevel onto slog's levels.
func (s *Settings) SlogLevel() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// envReader parses environment values, remembering the first failure so Load
// can report it after a single pass.
type envReader struct {
	err error
}

func (r *envReader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) num(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f
}

func (r *envReader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d
}
