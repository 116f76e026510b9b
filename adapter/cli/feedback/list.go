package feedback

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/application/queries"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

var (
	search     string
	statuses   []string
	labelRefs  []string
	sortBy     string
	from       string
	to         string
	where      string
	publicOnly bool
	asJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List feedback items",
	Long: `List feedback items with optional filtering and sorting.

Filter Options:
  --search    Case-insensitive text in title or summary
  --status    Keep items with any of these statuses (public, internal, archived, pending)
  --label     Keep items carrying any of these labels (id or name)
  --from/--to Created between these dates (YYYY-MM-DD, inclusive)
  --where     Expression over id, title, summary, status, author, labels,
              upvotes, comments, createdAt, updatedAt and now
  --public    Only what the widget shows

Sort Options:
  --sort      newest, oldest, most-upvotes, least-upvotes

Examples:
  featureboard feedback list --status public --sort most-upvotes
  featureboard feedback list --label BUG --search crash
  featureboard feedback list --where 'upvotes >= 10 and "FEATURE" in labels'`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListItems == nil {
			return cli.ErrNotInitialized
		}
		ctx := cmd.Context()

		ns, err := app.Namespace(ctx, apiKey)
		if err != nil {
			return err
		}

		query := queries.ListItemsQuery{
			Namespace:  ns,
			Where:      where,
			PublicOnly: publicOnly,
			Criteria: domain.Criteria{
				Search: search,
				Sort:   domain.SortKey(sortBy),
			},
		}
		for _, s := range statuses {
			st, err := domain.ParseStatus(s)
			if err != nil {
				return err
			}
			query.Criteria.Statuses = append(query.Criteria.Statuses, st)
		}
		labels, err := resolveLabels(labelRefs)
		if err != nil {
			return err
		}
		for _, l := range labels {
			query.Criteria.LabelIDs = append(query.Criteria.LabelIDs, l.ID)
		}
		if from != "" {
			t, err := time.Parse(time.DateOnly, from)
			if err != nil {
				return fmt.Errorf("invalid --from format, use YYYY-MM-DD: %w", err)
			}
			query.Criteria.From = &t
		}
		if to != "" {
			t, err := time.Parse(time.DateOnly, to)
			if err != nil {
				return fmt.Errorf("invalid --to format, use YYYY-MM-DD: %w", err)
			}
			end := t.Add(24*time.Hour - time.Nanosecond)
			query.Criteria.To = &end
		}

		items, err := app.ListItems.Handle(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to list feedback: %w", err)
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), items)
		}
		printItems(cmd.OutOrStdout(), items)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&search, "search", "s", "", "search title and summary")
	listCmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status")
	listCmd.Flags().StringSliceVarP(&labelRefs, "label", "l", nil, "filter by label id or name")
	listCmd.Flags().StringVar(&sortBy, "sort", "", "sort order (newest, oldest, most-upvotes, least-upvotes)")
	listCmd.Flags().StringVar(&from, "from", "", "created on or after (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&to, "to", "", "created on or before (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&where, "where", "", "filter expression")
	listCmd.Flags().BoolVar(&publicOnly, "public", false, "only items and comments the widget shows")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
}
