package feedback

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

var (
	updateTitle   string
	updateSummary string
	updateStatus  string
	updateLabels  []string
	updateAuthor  string
)

var updateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a feedback item",
	Long: `Update the given fields of a feedback item. Fields without a flag keep
their value; --label replaces the whole label set.

Examples:
  featureboard feedback update 1735689600000 --status archived
  featureboard feedback update 1735689600000 --label FIX --label ANNOUNCEMENT`,
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

		var patch domain.Patch
		flags := cmd.Flags()
		if flags.Changed("title") {
			patch.Title = &updateTitle
		}
		if flags.Changed("summary") {
			patch.Summary = &updateSummary
		}
		if flags.Changed("status") {
			st := domain.Status(updateStatus)
			patch.Status = &st
		}
		if flags.Changed("label") {
			labels, err := resolveLabels(updateLabels)
			if err != nil {
				return err
			}
			patch.Labels = &labels
		}
		if flags.Changed("author") {
			patch.Author = &updateAuthor
		}
		if patch.IsEmpty() {
			return errors.New("nothing to update")
		}

		if err := board.Update(ctx, id, patch); err != nil {
			return fmt.Errorf("failed to update feedback: %w", err)
		}
		item, _ := board.Get(id)
		fmt.Fprintf(cmd.OutOrStdout(), "Feedback updated: %s\n", id)
		printItem(cmd.OutOrStdout(), item)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVarP(&updateSummary, "summary", "m", "", "new summary")
	updateCmd.Flags().StringVar(&updateStatus, "status", "", "new status")
	updateCmd.Flags().StringSliceVarP(&updateLabels, "label", "l", nil, "replace labels (id or name)")
	updateCmd.Flags().StringVar(&updateAuthor, "author", "", "new author")
}
