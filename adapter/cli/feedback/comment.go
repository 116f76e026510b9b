package feedback

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

var (
	commentAuthor   string
	commentInternal bool
)

var commentCmd = &cobra.Command{
	Use:   "comment [id] [content]",
	Short: "Comment on a feedback item",
	Long: `Add a comment to a feedback item. Comments are public unless --internal
is given; internal comments never reach the widget.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil {
			return cli.ErrNotInitialized
		}
		ctx := cmd.Context()

		board, err := app.Board(ctx, apiKey)
		if err != nil {
			return err
		}
		id := args[0]
		if _, ok := board.Get(id); !ok {
			return fmt.Errorf("feedback %s not found", id)
		}

		c, err := board.AddComment(ctx, id, domain.CommentInput{
			Content:  args[1],
			Author:   commentAuthor,
			IsPublic: !commentInternal,
		})
		if err != nil {
			return fmt.Errorf("failed to add comment: %w", err)
		}
		visibility := "public"
		if !c.IsPublic {
			visibility = "internal"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Comment added: %s (%s)\n", c.ID, visibility)
		return nil
	},
}

func init() {
	commentCmd.Flags().StringVar(&commentAuthor, "author", "Admin", "comment author")
	commentCmd.Flags().BoolVar(&commentInternal, "internal", false, "hide the comment from the widget")
}
