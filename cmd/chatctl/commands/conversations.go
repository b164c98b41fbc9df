package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	llmModels "chatloop/internal/domain/models/llm"
	llmRepo "chatloop/internal/domain/repositories/llm"
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Manage conversations",
}

var conversationsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty conversation and print its id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, stores, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer stores.Close()

		conv := &llmModels.Conversation{}
		if err := stores.Conversations.Create(cmd.Context(), conv); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), conv.ID)
		return nil
	},
}

var listLimit int

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print conversations newest first, one \"<id> <created_at>\" per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, stores, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer stores.Close()

		return listConversations(cmd, stores.Conversations, listLimit, cmd.OutOrStdout())
	},
}

func listConversations(cmd *cobra.Command, repo llmRepo.ConversationRepository, limit int, out io.Writer) error {
	convs, err := repo.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	for _, c := range convs {
		fmt.Fprintf(out, "%s %s\n", c.ID, c.CreatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func init() {
	conversationsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum conversations to print (0 for all)")
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsCreateCmd)
	rootCmd.AddCommand(conversationsCmd)
}
