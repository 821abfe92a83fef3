package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"patentchat/internal/render"
)

func newConversationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convs", "inbox"},
		Short:   "List your conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			client := a.client()
			defer client.Close()

			items, err := client.ListConversations(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No conversations yet")
				return nil
			}
			return render.Conversations(out, items, render.NewStyles(out))
		},
	}
}
