package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskbridge/internal/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently created issues",
	Long: `List the most recent issues created through TaskBridge, newest
first, with the type and priority each one resolved to.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := openHistory(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open history: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		entries, err := store.List(context.Background(), limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(entries) == 0 {
			fmt.Println("No issues created yet")
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		for _, e := range entries {
			line := fmt.Sprintf("%s  %s  %s", green(e.IssueKey), e.CreatedAt.Format("2006-01-02 15:04"), e.Summary)
			if e.ResolvedType != "" {
				extra := e.ResolvedType
				if e.ResolvedPriority != "" {
					extra += "/" + e.ResolvedPriority
				}
				line += fmt.Sprintf("  (%s)", extra)
			}
			fmt.Println(line)
		}
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy to the creation history",
	Long: `Delete history entries older than the retention window and trim the
table to its maximum size. The policy comes from the TASKBRIDGE_HISTORY_*
environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		retention, err := config.HistoryRetentionFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := openHistory(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open history: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		deleted, err := store.Prune(context.Background(), retention)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Pruned %d entr%s (%s)\n", green("✓"), deleted, pluralY(deleted), retention.String())
	},
}

func pluralY(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum entries to show")
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
