package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, vs, _, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer vs.Close()

	stats, err := p.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	cmd.Printf("Source files:       %d\n", stats.SourceFiles)
	cmd.Printf("Documents in store: %d\n", stats.DocumentsInStore)
	return nil
}
