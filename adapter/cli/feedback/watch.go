package feedback

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

var watchCount int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print board changes as they happen",
	Long: `Open a board session and print a line whenever another session,
process or widget changes the board. Stops on Ctrl-C or after --count changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Boards == nil {
			return cli.ErrNotInitialized
		}
		ctx := cmd.Context()

		ns, err := app.Namespace(ctx, apiKey)
		if err != nil {
			return err
		}
		board := app.Boards.Open(ctx, ns)
		defer app.Boards.Close(board)
		if app.StartRelay != nil {
			app.StartRelay(ctx)
		}

		changes := make(chan []domain.Item, 16)
		stop := board.OnChange(func(items []domain.Item) {
			select {
			case changes <- items:
			default:
			}
		})
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Watching %s (%d items)\n", ns, len(board.Items()))

		seen := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case items := <-changes:
				var votes int
				for _, it := range items {
					votes += it.UpvoteCount()
				}
				fmt.Fprintf(out, "%s  %d items, %d upvotes\n", time.Now().Format(time.TimeOnly), len(items), votes)
				seen++
				if watchCount > 0 && seen >= watchCount {
					return nil
				}
			}
		}
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "stop after this many changes")
}
