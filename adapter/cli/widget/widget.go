package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	widgetpkg "github.com/felixgeelhaar/featureboard/internal/widget"
)

var override widgetpkg.Config

// Cmd is the widget command group
var Cmd = &cobra.Command{
	Use:   "widget",
	Short: "Inspect and drive the embeddable widget",
	Long: `Work with the widget the way an embedding page would. The configuration
comes from WIDGET_* environment variables, overridden by flags.`,
}

var (
	searchText string
	labelID    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective widget configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List what the widget shows, most upvoted first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWidget(cmd.Context(), func(w *widgetpkg.Widget) error {
			items := w.List(searchText)
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No feedback yet.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tVOTES\tCOMMENTS\tTITLE")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", it.ID, it.UpvoteCount(), len(it.Comments), it.Title)
			}
			return tw.Flush()
		})
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit [title] [description]",
	Short: "Submit an idea through the widget",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWidget(cmd.Context(), func(w *widgetpkg.Widget) error {
			item, err := w.Submit(cmd.Context(), args[0], args[1], labelID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted: %s\n", item.ID)
			return nil
		})
	},
}

var upvoteCmd = &cobra.Command{
	Use:   "upvote [id]",
	Short: "Upvote an item as an anonymous visitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWidget(cmd.Context(), func(w *widgetpkg.Widget) error {
			if _, ok := w.Board().Get(args[0]); !ok {
				return fmt.Errorf("feedback %s not found", args[0])
			}
			u := w.Upvote(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Upvoted %s as %s\n", args[0], u.UserID)
			return nil
		})
	},
}

func effectiveConfig() (widgetpkg.Config, error) {
	app := cli.GetApp()
	base := widgetpkg.DefaultConfig()
	if app != nil {
		base = app.Widget
	}
	cfg := base.Merge(override)
	if err := cfg.Validate(); err != nil {
		return widgetpkg.Config{}, err
	}
	return cfg, nil
}

func withWidget(ctx context.Context, fn func(w *widgetpkg.Widget) error) error {
	app := cli.GetApp()
	if app == nil || app.OpenWidget == nil {
		return cli.ErrNotInitialized
	}
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	w, err := app.OpenWidget(ctx, cfg)
	if err != nil {
		return err
	}
	if app.Boards != nil {
		defer app.Boards.Close(w.Board())
	}
	return fn(w)
}

func init() {
	pf := Cmd.PersistentFlags()
	pf.StringVar((*string)(&override.Position), "position", "", "bottom-right, bottom-left, top-right or top-left")
	pf.StringVar((*string)(&override.Theme), "theme", "", "light or dark")
	pf.StringVar(&override.PrimaryColor, "color", "", "primary color (#RRGGBB)")
	pf.StringVar(&override.Title, "title", "", "widget title")
	pf.StringVar(&override.Placeholder, "placeholder", "", "input placeholder")
	pf.StringVar(&override.APIKey, "api-key", "", "API key (fdk_...)")
	pf.StringVar((*string)(&override.DataSource), "data-source", "", "local or remote")
	pf.StringVar(&override.Endpoint, "endpoint", "", "remote feedback endpoint")

	listCmd.Flags().StringVarP(&searchText, "search", "s", "", "search title and summary")
	submitCmd.Flags().StringVarP(&labelID, "label", "l", "", "label id")

	Cmd.AddCommand(configCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(submitCmd)
	Cmd.AddCommand(upvoteCmd)
}
