package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryLimit   int
	queryStream  bool
	querySources bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about the ingested documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "maximum chunks to retrieve (default from config)")
	queryCmd.Flags().BoolVarP(&queryStream, "stream", "s", false, "print the answer as it is generated")
	queryCmd.Flags().BoolVar(&querySources, "sources", false, "list the sources behind the answer")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, vs, _, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer vs.Close()

	question := args[0]
	if queryStream {
		stream, docs, err := p.StreamQuery(ctx, question, queryLimit, nil)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		defer stream.Close()
		for {
			fragment, done, err := stream.Recv()
			if err != nil {
				return fmt.Errorf("stream failed: %w", err)
			}
			if fragment != "" {
				cmd.Print(fragment)
			}
			if done {
				break
			}
		}
		cmd.Println()
		if querySources {
			printSources(cmd, docs)
		}
		return nil
	}

	answer, docs, err := p.Query(ctx, question, queryLimit, nil)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	cmd.Println(answer)
	if querySources {
		printSources(cmd, docs)
	}
	return nil
}
