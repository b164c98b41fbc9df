package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chatloop/internal/datastream"
	llmRepo "chatloop/internal/domain/repositories/llm"
	"chatloop/internal/service/llm/streaming"
)

var replayCmd = &cobra.Command{
	Use:   "replay <conversation-id>",
	Short: "Print a stored conversation as data stream lines",
	Long: `Re-encode every stored turn of a conversation and print the wire lines,
exactly as the chat endpoint streams them.

Examples:
  chatctl replay 0b6d1c2e-6f1b-4c1e-9a57-2f3c4d5e6f70
  STORE_BACKEND=redis chatctl replay 0b6d1c2e-6f1b-4c1e-9a57-2f3c4d5e6f70 > turns.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, stores, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer stores.Close()

		return replay(cmd, stores.Turns, args[0], cmd.OutOrStdout())
	},
}

// replay writes the wire lines of every stored turn. A turn that no longer
// encodes is replaced by an error turn, as the chat endpoint does.
func replay(cmd *cobra.Command, turns llmRepo.TurnReader, conversationID string, out io.Writer) error {
	history, err := turns.ListByConversation(cmd.Context(), conversationID)
	if err != nil {
		return fmt.Errorf("load turns: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("conversation %s has no turns", conversationID)
	}

	w := datastream.NewStreamWriter(out)
	builder := streaming.NewBuilder()
	for i := range history {
		turn := &history[i]
		if _, err := datastream.Encode(turn); err != nil {
			newLogger().Warn("turn does not encode", "turn_id", turn.ID, "error", err)
			turn = builder.NewErrorTurn(conversationID, fmt.Sprintf("failed to encode turn %s: %v", turn.ID, err))
		}
		if err := w.WriteTurn(turn); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
