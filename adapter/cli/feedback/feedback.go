package feedback

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

// apiKey selects the namespace every feedback subcommand works on.
var apiKey string

// Cmd is the feedback command group
var Cmd = &cobra.Command{
	Use:   "feedback",
	Short: "Manage feedback items",
	Long: `Create, list, update and discuss feedback items.

Without --api-key the commands work on the global board. With a key they work
on that key's board, the one its widget shows.`,
	Aliases: []string{"fb"},
}

func init() {
	Cmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "work on the board of this API key (fdk_...)")

	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(commentCmd)
	Cmd.AddCommand(upvoteCmd)
	Cmd.AddCommand(unvoteCmd)
	Cmd.AddCommand(watchCmd)
}

func printItems(out io.Writer, items []domain.Item) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No feedback found.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tVOTES\tCOMMENTS\tLABELS\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			it.ID, it.Status, it.UpvoteCount(), len(it.Comments), labelNames(it.Labels), it.Title)
	}
	_ = tw.Flush()
}

func printItem(out io.Writer, it domain.Item) {
	fmt.Fprintf(out, "%s  %s\n", it.ID, it.Title)
	fmt.Fprintf(out, "  status:   %s\n", it.Status)
	if len(it.Labels) > 0 {
		fmt.Fprintf(out, "  labels:   %s\n", labelNames(it.Labels))
	}
	if it.Author != "" {
		fmt.Fprintf(out, "  author:   %s\n", it.Author)
	}
	fmt.Fprintf(out, "  upvotes:  %d\n", it.UpvoteCount())
	fmt.Fprintf(out, "  summary:  %s\n", it.Summary)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func labelNames(labels []domain.Label) string {
	if len(labels) == 0 {
		return "-"
	}
	names := make([]string, len(labels))
	for n, l := range labels {
		names[n] = l.Name
	}
	return strings.Join(names, ",")
}

// resolveLabels maps label ids or names to built-in labels.
func resolveLabels(refs []string) ([]domain.Label, error) {
	out := make([]domain.Label, 0, len(refs))
	for _, ref := range refs {
		l, ok := domain.ResolveLabel(ref)
		if !ok {
			return nil, fmt.Errorf("unknown label %q", ref)
		}
		out = append(out, l)
	}
	return out, nil
}
