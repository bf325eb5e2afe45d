package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"taskbridge/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start interactive REPL shell",
	Long: `Start an interactive shell where every line becomes a Jira issue.

Type an instruction in plain language and TaskBridge drafts, resolves,
and creates the issue against the target project. Use 'project KEY' to
switch projects and 'recent' to list what you created.

Type 'help' in the REPL for available commands.`,
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

		rcfg := &repl.Config{
			Drafter: planner,
			Creator: client,
			Project: cfg.Jira.DefaultProject,
		}
		if store, err := openHistory(cfg); err != nil {
			slog.Warn("history database unavailable", "path", cfg.History.Path, "error", err)
		} else {
			defer store.Close()
			rcfg.Recorder = store
		}

		r, err := repl.New(rcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create REPL: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		if err := r.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
