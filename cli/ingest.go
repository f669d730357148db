package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ingestFile  string
	ingestReset bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load documents into the vector store",
	Long: `Loads, chunks and embeds every supported file in the documents
directory, or a single file when --file is given.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "ingest a single file instead of the whole directory")
	ingestCmd.Flags().BoolVarP(&ingestReset, "reset", "r", false, "clear the vector store first")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, vs, _, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer vs.Close()

	chunks, err := p.Ingest(ctx, ingestFile, ingestReset)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	stats, err := p.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	cmd.Printf("Ingested %d chunks\n", chunks)
	cmd.Printf("Documents in store: %d\n", stats.DocumentsInStore)
	return nil
}
