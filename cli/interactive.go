package cli

import (
	"bufio"
	"context"
	"strings"

	"github.com/spf13/cobra"

	"docqa/types"
)

// historyLimit caps how many prior turns feed the prompt in a long session.
const historyLimit = 20

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"chat"},
	Short:   "Ask questions in an interactive session",
	RunE:    runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, vs, _, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer vs.Close()

	cmd.Println("Ask questions about your documents. Type 'quit' to exit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	var history []types.ChatMessage

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}

		stream, _, err := p.StreamQuery(ctx, question, 0, history)
		if err != nil {
			cmd.PrintErrln("error:", err)
			continue
		}

		var answer strings.Builder
		for {
			fragment, done, err := stream.Recv()
			if err != nil {
				cmd.PrintErrln("error:", err)
				break
			}
			if fragment != "" {
				cmd.Print(fragment)
				answer.WriteString(fragment)
			}
			if done {
				break
			}
		}
		stream.Close()
		cmd.Println()
		cmd.Println()

		history = append(history,
			types.ChatMessage{Role: types.RoleUser, Content: question},
			types.ChatMessage{Role: types.RoleAssistant, Content: answer.String()},
		)
		if len(history) > historyLimit {
			history = history[len(history)-historyLimit:]
		}
	}
	return scanner.Err()
}
