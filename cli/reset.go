package cli

import (
	"bufio"
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete everything from the vector store",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		cmd.Print("This deletes all stored documents. Continue? [y/N] ")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := context.Background()
	p, vs, _, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer vs.Close()

	if err := p.ResetVectorStore(ctx); err != nil {
		return err
	}
	cmd.Println("Vector store reset.")
	return nil
}
