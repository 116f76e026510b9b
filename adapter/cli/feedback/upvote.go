package feedback

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

var (
	voterID   string
	voterName string
)

var upvoteCmd = &cobra.Command{
	Use:   "upvote [id]",
	Short: "Upvote a feedback item",
	Long: `Record an upvote. The voter defaults to the configured user. Votes are
not deduplicated; every call adds one.`,
	Args: cobra.ExactArgs(1),
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

		u := board.AddUpvote(ctx, id, domain.UpvoteInput{UserID: voter(app), UserName: voterName})
		item, _ := board.Get(id)
		fmt.Fprintf(cmd.OutOrStdout(), "Upvoted %s as %s (%d votes)\n", id, u.UserID, item.UpvoteCount())
		return nil
	},
}

var unvoteCmd = &cobra.Command{
	Use:   "unvote [id]",
	Short: "Remove your upvotes from a feedback item",
	Args:  cobra.ExactArgs(1),
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
		item, ok := board.Get(id)
		if !ok {
			return fmt.Errorf("feedback %s not found", id)
		}
		user := voter(app)
		if !item.HasUpvoteFrom(user) {
			fmt.Fprintf(cmd.OutOrStdout(), "No upvote from %s on %s\n", user, id)
			return nil
		}

		board.RemoveUpvote(ctx, id, user)
		item, _ = board.Get(id)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed upvote by %s from %s (%d votes)\n", user, id, item.UpvoteCount())
		return nil
	},
}

func voter(app *cli.App) string {
	if voterID != "" {
		return voterID
	}
	return app.CurrentUserID
}

func init() {
	for _, c := range []*cobra.Command{upvoteCmd, unvoteCmd} {
		c.Flags().StringVar(&voterID, "user", "", "voter user id (default: configured user)")
	}
	upvoteCmd.Flags().StringVar(&voterName, "name", "", "voter display name")
}
