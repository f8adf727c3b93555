package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatPrivate bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage chat sessions",
}

var chatShareCmd = &cobra.Command{
	Use:   "share <session-id>",
	Short: "Share a chat session by link, or make it private again",
	Long: `Make a chat session public and print its share link. With --private
the session is made private and existing links stop working.

Examples:
  onyxadmin chat share 0b5c9a9e-3f0c-4f8e-a1b2-6f1d2e3c4b5a
  onyxadmin chat share 0b5c9a9e-3f0c-4f8e-a1b2-6f1d2e3c4b5a --private`,
	Args: cobra.ExactArgs(1),
	RunE: runChatShare,
}

func init() {
	chatShareCmd.Flags().BoolVar(&chatPrivate, "private", false, "make the session private")
	chatCmd.AddCommand(chatShareCmd)
}

func runChatShare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}

	chat := sess.Dispatcher().Chat(newSurface().Setter(), sess.Client().ShareLink)
	if chatPrivate {
		return reported(chat.Unshare(ctx, id))
	}

	link, err := chat.Share(ctx, id)
	if err != nil {
		return reported(err)
	}
	// The link goes to stdout so it can be piped.
	fmt.Println(link)
	return nil
}
