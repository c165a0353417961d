package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/client"
	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/observability"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Terminal client for the live-chat service",
	Long: `chatctl talks to a live-chat server as a customer or as a support agent.

Examples:
  chatctl customer --name Bob --email bob@example.com --issue "order is late"
  chatctl agent list --search bob
  chatctl agent accept <request-id>
  chatctl agent chat <request-id>
  chatctl agent resolve <request-id>
  chatctl faq "how can I track my order?"`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(customerCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(faqCmd)

	rootCmd.PersistentFlags().String("api", "", "API base URL (default from CHAT_API_URL)")
	rootCmd.PersistentFlags().String("realtime", "", "Realtime websocket URL (default from CHAT_REALTIME_URL)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// env is what every subcommand needs to reach the server.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	api    *client.Client
	feed   *client.FeedClient
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("api"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("realtime"); v != "" {
		cfg.Client.RealtimeURL = v
	}
	cfg.Logger.Level = "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logger.Level = "debug"
	}
	cfg.Logger.Format = "console"

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		api:    client.New(cfg.Client, logger),
		feed:   client.NewFeedClient(cfg.Client.RealtimeURL, logger),
	}, nil
}
