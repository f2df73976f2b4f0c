package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"orbsnake/client/internal/app"
)

func main() {
	var cfg app.Config

	root := &cobra.Command{
		Use:   "orbsnake-bot",
		Short: "Headless orbsnake client for netcode testing and diagnostics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, cfg)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVar(&cfg.ServerURL, "server", "", "websocket endpoint (ws:// or wss://)")
	root.Flags().StringVar(&cfg.LobbyURL, "lobby", "", "matchmaking endpoint; overrides --server")
	root.Flags().StringVar(&cfg.Room, "room", "", "room name")
	root.Flags().StringVar(&cfg.Name, "name", "bot", "display name")
	root.Flags().StringVar(&cfg.Listen, "listen", ":9178", "debug HTTP listen address")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.LogFile, "log-file", "", "optional rotated JSON log file")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
