package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askDataset string
	askSession string
	askHistory bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about an analyzed dataset",
	Long: `Ask a question about an analyzed dataset. Answers draw on the
latest completed analysis, citing the agents whose results were used.

Pass --session to continue an earlier conversation; the answer prints
the session ID to resume with.

Examples:
  iris ask "were there any unusual spikes last week?" --dataset ds1a2b3c
  iris ask "what should we fix first?" -d ds1a2b3c -s conv9f8e
  iris ask --history -s conv9f8e`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askDataset, "dataset", "d", "", "dataset to ask about")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "conversation session to continue")
	askCmd.Flags().BoolVar(&askHistory, "history", false, "print the session history instead of asking")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if askHistory {
		if askSession == "" {
			return fmt.Errorf("--history requires --session")
		}
		messages, err := apiClient.History(ctx, askSession)
		if err != nil {
			return fmt.Errorf("get history: %w", err)
		}
		for _, msg := range messages {
			fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
		}
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("expected exactly one question")
	}
	if askDataset == "" {
		return fmt.Errorf("--dataset is required")
	}

	answer, err := apiClient.Ask(ctx, askSession, askDataset, args[0])
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		cited := make([]string, len(answer.Citations))
		for i, kind := range answer.Citations {
			cited[i] = string(kind)
		}
		fmt.Printf("\nBased on: %s (job %s)\n", strings.Join(cited, ", "), answer.JobID)
	}
	if verbose || askSession == "" {
		fmt.Printf("Session: %s\n", answer.ConversationID)
	}
	return nil
}
