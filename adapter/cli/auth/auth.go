package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/identity/domain"
)

var (
	email    string
	password string
	name     string
)

// Cmd is the auth command group.
var Cmd = &cobra.Command{
	Use:   "auth",
	Short: "Account helpers",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check account credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Accounts == nil {
			return cli.ErrNotInitialized
		}
		user, err := app.Accounts.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		printUser(cmd, "Logged in", user)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Accounts == nil {
			return cli.ErrNotInitialized
		}
		user, err := app.Accounts.Signup(cmd.Context(), email, password, name)
		if err != nil {
			return err
		}
		printUser(cmd, "Signed up", user)
		return nil
	},
}

func printUser(cmd *cobra.Command, verb string, u domain.User) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s as %s <%s>\n", verb, u.Name, u.Email)
	fmt.Fprintf(cmd.OutOrStdout(), "  id:   %s\n", u.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "  role: %s\n", u.Role)
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&email, "email", "", "account email")
		c.Flags().StringVar(&password, "password", "", "account password")
	}
	signupCmd.Flags().StringVar(&name, "name", "", "display name")

	Cmd.AddCommand(loginCmd)
	Cmd.AddCommand(signupCmd)
}
