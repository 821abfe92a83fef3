package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		email    string
		password string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			client := a.client()
			defer client.Close()

			res, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if save {
				path, err := saveToken(a.v, a.cfg, res.AccessToken)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Logged in as %s (%s), token saved to %s\n", res.User.Name, res.User.UniqueID, path)
				return nil
			}
			fmt.Fprintln(out, res.AccessToken)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&save, "save", false, "store the token in the config file instead of printing it")
	return cmd
}
