package feedback

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

var (
	createSummary string
	createStatus  string
	createLabels  []string
	createAuthor  string
)

var createCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a feedback item",
	Long: `Create a feedback item at the top of the board.

Examples:
  featureboard feedback create "Dark mode" --summary "Please add a dark theme" --label FEATURE
  featureboard feedback create "Crash on save" -m "Steps: ..." --status internal --label 5`,
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
		labels, err := resolveLabels(createLabels)
		if err != nil {
			return err
		}

		item, err := board.Create(ctx, domain.Draft{
			Title:   args[0],
			Summary: createSummary,
			Status:  domain.Status(createStatus),
			Labels:  labels,
			Author:  createAuthor,
		})
		if err != nil {
			return fmt.Errorf("failed to create feedback: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Feedback created: %s\n", item.ID)
		printItem(cmd.OutOrStdout(), item)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createSummary, "summary", "m", "", "item summary (required)")
	createCmd.Flags().StringVar(&createStatus, "status", "", "status (default public)")
	createCmd.Flags().StringSliceVarP(&createLabels, "label", "l", nil, "label id or name")
	createCmd.Flags().StringVar(&createAuthor, "author", "", "author name")
}
