package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskbridge/internal/ai"
	"taskbridge/internal/config"
	"taskbridge/internal/history"
	"taskbridge/internal/jira"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taskbridge",
	Short: "Turn natural-language instructions into Jira issues",
	Long: `TaskBridge turns free-text instructions into structured Jira issues.

It drafts the issue with Claude, resolves the requested issue type,
priority, and assignee against the target project's live metadata,
and submits the create request. A transcript mode extracts next best
actions from call notes and schedules them in Google Calendar.

Example:
  taskbridge create "fix the login timeout bug, urgent, assign to Maria"`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is taskbridge.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("taskbridge")
	}

	viper.SetEnvPrefix("TASKBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newJiraClient(cfg *config.Config) (*jira.Client, error) {
	if err := cfg.ValidateForJira(); err != nil {
		return nil, err
	}
	return jira.New(jira.Config{
		BaseURL:  cfg.Jira.BaseURL,
		Email:    cfg.Jira.Email,
		APIToken: cfg.Jira.APIToken,
		Timeout:  cfg.JiraTimeout(),
		RPS:      cfg.Jira.RPS,
	})
}

func newPlanner(cfg *config.Config) (*ai.Planner, error) {
	return ai.NewPlanner(ai.Config{
		APIKey: cfg.Model.APIKey,
		Model:  cfg.Model.Name,
	})
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	return history.Open(cfg.History.Path)
}
