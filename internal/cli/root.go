// Package cli implements the chatsync command line client.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"patentchat/internal/apiclient"
	"patentchat/internal/chatsync"
	"patentchat/internal/logging"
)

// Execute runs the root command.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(version).ExecuteContext(ctx)
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v          *viper.Viper
	cfg        Config
	configFile string
}

func newRootCmd(version string) *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "chatsync",
		Short:         "Command line client for PatentChat conversations",
		Long:          "chatsync reads and sends PatentChat messages through the same sync engine the apps use.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.v, cmd.Flags(), a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logCfg := logging.DefaultConfig()
			logCfg.Level = cfg.LogLevel
			logCfg.Output = cmd.ErrOrStderr()
			logging.Init(logCfg)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ~/.patentchat.yaml)")
	flags.String("base-url", defaultBaseURL, "API base URL")
	flags.String("token", "", "bearer token")
	flags.Int("page-size", 20, "messages per page")
	flags.Duration("timeout", 15*time.Second, "per request timeout")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newLoginCmd(a),
		newConversationsCmd(a),
		newHistoryCmd(a),
		newSendCmd(a),
	)

	return cmd
}

func (a *app) client() *apiclient.Client {
	return apiclient.New(apiclient.Config{
		BaseURL: a.cfg.BaseURL,
		Token:   a.cfg.Token,
		Timeout: a.cfg.Timeout,
	})
}

func (a *app) requireToken() error {
	if a.cfg.Token == "" {
		return fmt.Errorf("not logged in: run `chatsync login --save` or pass --token")
	}
	return nil
}

// openSession builds a session for conversationID on behalf of the token's user.
func (a *app) openSession(ctx context.Context, conversationID string) (*chatsync.Session, *apiclient.Client, string, error) {
	if err := a.requireToken(); err != nil {
		return nil, nil, "", err
	}
	client := a.client()

	me, err := client.Me(ctx)
	if err != nil {
		client.Close()
		return nil, nil, "", fmt.Errorf("resolve current user: %w", err)
	}

	log := logging.WithConversation(logging.Component("chatsync"), conversationID)
	session := chatsync.NewSession(client, conversationID, chatsync.Options{
		PageSize:     a.cfg.PageSize,
		SenderUserID: me.ID,
		Logger:       &log,
	})
	return session, client, me.ID, nil
}
