package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"patentchat/internal/render"
)

func newHistoryCmd(a *app) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:     "history <conversation-id>",
		Aliases: []string{"log"},
		Short:   "Print the latest messages of a conversation",
		Long: "history loads the newest window of a conversation and then walks back\n" +
			"through older pages while the server reports more, up to --pages windows.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}

			ctx := cmd.Context()
			session, client, selfID, err := a.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer client.Close()
			defer session.Close()

			if _, err := session.LoadInitial(ctx); err != nil {
				return err
			}
			for loaded := 1; loaded < pages && session.HasOlder(); loaded++ {
				res, err := session.LoadOlder(ctx, session.NextCursor())
				if err != nil {
					return err
				}
				if res.Added == 0 {
					break
				}
			}
			// Let the read receipt go out before the session is closed.
			session.Wait()

			out := cmd.OutOrStdout()
			msgs := session.Messages()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "No messages yet")
				return nil
			}
			if err := render.History(out, msgs, selfID, render.NewStyles(out)); err != nil {
				return err
			}
			if session.HasOlder() {
				fmt.Fprintln(out, "… older messages available, raise --pages to see them")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}
