package apikey

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
)

var userID string

// Cmd prints the caller's API key, issuing it on first use.
var Cmd = &cobra.Command{
	Use:   "apikey",
	Short: "Show or issue the API key for a user",
	Long: `Print the API key of a user, issuing one on first use. The key is what an
embedded widget authenticates with, and it owns a board of its own.

Examples:
  featureboard apikey
  featureboard apikey --user 2
  featureboard apikey resolve fdk_...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Keys == nil {
			return cli.ErrNotInitialized
		}
		user := userID
		if user == "" {
			user = app.CurrentUserID
		}
		key, err := app.Keys.GetOrCreateAPIKey(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("failed to issue API key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [key]",
	Short: "Show which user owns an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Keys == nil {
			return cli.ErrNotInitialized
		}
		owner, ok, err := app.Keys.ResolveAPIKey(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown API key")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user: %s\n", owner)
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&userID, "user", "", "user id (default: configured user)")
	Cmd.AddCommand(resolveCmd)
}
