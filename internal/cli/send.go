package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"patentchat/internal/chatsync"
	"patentchat/internal/render"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		retries    int
		retryDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <conversation-id> <text...>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if retries < 0 {
				return fmt.Errorf("--retries must not be negative")
			}

			ctx := cmd.Context()
			session, client, selfID, err := a.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer client.Close()
			defer session.Close()

			localID, err := session.SendAndWait(ctx, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			for attempt := 0; attempt < retries && session.SendState(localID) == chatsync.StateFailed; attempt++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
				}
				if err := session.Retry(localID); err != nil {
					return err
				}
				if err := session.WaitContext(ctx); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if serverID, ok := session.ConfirmedID(localID); ok {
				msg, _ := session.Store().Get(serverID)
				fmt.Fprintln(out, render.Line(msg, selfID, render.NewStyles(out)))
				return nil
			}

			msg, _ := session.Store().Get(localID)
			fmt.Fprintln(out, render.Line(msg, selfID, render.NewStyles(out)))
			return fmt.Errorf("message %s was not delivered", localID)
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 0, "retry a failed send this many times")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", time.Second, "pause before each retry")
	return cmd
}
