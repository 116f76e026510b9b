package feedback

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Short:   "Delete a feedback item",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
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
		board.Delete(ctx, id)
		fmt.Fprintf(cmd.OutOrStdout(), "Feedback deleted: %s\n", id)
		return nil
	},
}
