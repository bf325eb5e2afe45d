package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskbridge/internal/config"
	"taskbridge/internal/history"
	"taskbridge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the HTTP server exposing the instruction-to-issue API.

Endpoints:
  POST /create-jira-task  Create a Jira task from a natural language instruction
  GET  /health            Service health
  GET  /                  Endpoint index

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		planner, err := newPlanner(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		client, err := newJiraClient(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal", "signal", sig.String())
			cancel()
		}()

		var store *history.Store
		if store, err = openHistory(cfg); err != nil {
			slog.Warn("history database unavailable, creations will not be recorded", "path", cfg.History.Path, "error", err)
			store = nil
		} else {
			defer store.Close()
			pruneHistory(ctx, store)
		}

		opts := server.Options{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			DefaultProject: cfg.Jira.DefaultProject,
			Drafter:        planner,
			Creator:        client,
		}
		if store != nil {
			opts.Recorder = store
		}

		if err := server.New(opts).Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// pruneHistory applies the retention policy once at startup.
func pruneHistory(ctx context.Context, store *history.Store) {
	retention, err := config.HistoryRetentionFromEnv()
	if err != nil {
		slog.Warn("invalid history retention settings", "error", err)
		return
	}
	deleted, err := store.Prune(ctx, retention)
	if err != nil {
		slog.Warn("history prune failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("pruned creation history", "deleted", deleted, "policy", retention.String())
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
