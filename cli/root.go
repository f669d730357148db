package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/pipeline"
	"docqa/store"
	"docqa/types"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over your documents",
	Long: `docqa ingests text, markdown, PDF and DOCX files into a vector store
and answers questions about them with an LLM, grounded in the retrieved
chunks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildPipeline assembles the full pipeline from the environment. Tests
// swap it out for one built over fakes.
var buildPipeline = func(ctx context.Context) (*pipeline.Pipeline, store.VectorStore, *config.Settings, error) {
	_ = godotenv.Load()
	if logLevel != "" {
		os.Setenv("LOG_LEVEL", logLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	p, vs, err := pipeline.Build(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, vs, cfg, nil
}

func printSources(cmd *cobra.Command, docs []types.Document) {
	if len(docs) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, doc := range docs {
		cmd.Printf("  [%d] %s (chunk %d)\n", i+1, doc.Source(), doc.ChunkID())
	}
}
