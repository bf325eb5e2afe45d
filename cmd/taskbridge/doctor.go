package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check TaskBridge configuration and environment health",
	Long: `Run health checks to diagnose common configuration and environment issues.

This command checks for:
- Config file discovery
- Jira credentials and metadata access
- Anthropic API key
- Google Calendar credentials and cached token
- History database accessibility

Exit codes:
  0 - All checks passed
  1 - One or more checks failed (but not critical)
  2 - Critical failures that prevent TaskBridge from running`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running TaskBridge health checks...\n\n")

		var failures []string
		var warnings []string
		var criticalFailures []string

		// Check 1: Configuration
		fmt.Printf("%s Configuration\n", cyan("→"))
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Printf("  %s Using config file: %s\n", green("✓"), used)
		} else {
			warnings = append(warnings, "No config file found (environment and defaults apply)")
			fmt.Printf("  %s No config file found, environment and defaults apply\n", yellow("⚠"))
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("  %s Invalid configuration: %v\n", red("✗"), err)
			fmt.Printf("\n%s Critical failures prevent TaskBridge from running\n", red("✗"))
			os.Exit(2)
		}
		fmt.Printf("  %s Configuration loaded\n", green("✓"))

		// Check 2: Jira credentials and metadata access
		fmt.Printf("%s Jira\n", cyan("→"))
		if err := cfg.ValidateForJira(); err != nil {
			criticalFailures = append(criticalFailures, fmt.Sprintf("Jira not configured: %v", err))
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			fmt.Printf("  %s Credentials configured for %s\n", green("✓"), cfg.Jira.BaseURL)

			client, err := newJiraClient(cfg)
			if err != nil {
				failures = append(failures, fmt.Sprintf("Cannot build Jira client: %v", err))
				fmt.Printf("  %s Cannot build Jira client\n", red("✗"))
			} else {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				issueTypes, err := client.IssueTypes(ctx, cfg.Jira.DefaultProject)
				cancel()
				if err != nil {
					failures = append(failures, fmt.Sprintf("Cannot fetch metadata for %s: %v", cfg.Jira.DefaultProject, err))
					fmt.Printf("  %s Cannot fetch metadata for project %s\n", red("✗"), cfg.Jira.DefaultProject)
					if verbose {
						fmt.Printf("    Error: %v\n", err)
					}
				} else {
					fmt.Printf("  %s Project %s has %d issue type(s)\n", green("✓"), cfg.Jira.DefaultProject, len(issueTypes))
				}
			}
		}

		// Check 3: Anthropic API key
		fmt.Printf("%s Anthropic API\n", cyan("→"))
		apiKey := cfg.Model.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			failures = append(failures, "ANTHROPIC_API_KEY not set")
			fmt.Printf("  %s ANTHROPIC_API_KEY not set\n", red("✗"))
			fmt.Printf("    Instruction drafting will not work\n")
		} else {
			fmt.Printf("  %s ANTHROPIC_API_KEY is set\n", green("✓"))
			if verbose && len(apiKey) > 14 {
				fmt.Printf("    Key: %s...%s\n", apiKey[:10], apiKey[len(apiKey)-4:])
			}
		}

		// Check 4: Google Calendar
		fmt.Printf("%s Google Calendar\n", cyan("→"))
		if _, err := os.Stat(cfg.Calendar.CredentialsFile); err != nil {
			warnings = append(warnings, "Calendar credentials file missing (actions command unavailable)")
			fmt.Printf("  %s Credentials file not found: %s\n", yellow("⚠"), cfg.Calendar.CredentialsFile)
		} else {
			fmt.Printf("  %s Credentials file: %s\n", green("✓"), cfg.Calendar.CredentialsFile)
			if _, err := os.Stat(cfg.Calendar.TokenFile); err != nil {
				warnings = append(warnings, "No cached calendar token (first actions run will prompt for consent)")
				fmt.Printf("  %s No cached token, first actions run will prompt for consent\n", yellow("⚠"))
			} else {
				fmt.Printf("  %s Cached token: %s\n", green("✓"), cfg.Calendar.TokenFile)
			}
		}
		if _, err := time.LoadLocation(cfg.Calendar.Timezone); err != nil {
			warnings = append(warnings, fmt.Sprintf("Invalid calendar timezone %q", cfg.Calendar.Timezone))
			fmt.Printf("  %s Invalid timezone %q\n", yellow("⚠"), cfg.Calendar.Timezone)
		} else {
			fmt.Printf("  %s Timezone: %s\n", green("✓"), cfg.Calendar.Timezone)
		}

		// Check 5: History database
		fmt.Printf("%s History database\n", cyan("→"))
		if store, err := openHistory(cfg); err != nil {
			failures = append(failures, fmt.Sprintf("Cannot open history database: %v", err))
			fmt.Printf("  %s Cannot open %s\n", red("✗"), cfg.History.Path)
			if verbose {
				fmt.Printf("    Error: %v\n", err)
			}
		} else {
			entries, err := store.List(context.Background(), 1)
			switch {
			case err != nil:
				failures = append(failures, fmt.Sprintf("Cannot query history: %v", err))
				fmt.Printf("  %s Cannot query history\n", red("✗"))
			case len(entries) == 0:
				fmt.Printf("  %s Database ready at %s (no issues recorded yet)\n", green("✓"), cfg.History.Path)
			default:
				fmt.Printf("  %s Database ready, most recent issue %s\n", green("✓"), entries[0].IssueKey)
			}
			store.Close()
		}

		// Summary
		fmt.Printf("\n%s\n", strings.Repeat("─", 60))

		totalIssues := len(criticalFailures) + len(failures) + len(warnings)
		if totalIssues == 0 {
			fmt.Printf("%s All checks passed! TaskBridge is ready.\n", green("✓"))
			os.Exit(0)
		}

		if len(criticalFailures) > 0 {
			fmt.Printf("\n%s Critical failures (%d):\n", red("✗"), len(criticalFailures))
			for _, failure := range criticalFailures {
				fmt.Printf("  • %s\n", failure)
			}
		}

		if len(failures) > 0 {
			fmt.Printf("\n%s Failures (%d):\n", red("✗"), len(failures))
			for _, failure := range failures {
				fmt.Printf("  • %s\n", failure)
			}
		}

		if len(warnings) > 0 {
			fmt.Printf("\n%s Warnings (%d):\n", yellow("⚠"), len(warnings))
			for _, warning := range warnings {
				fmt.Printf("  • %s\n", warning)
			}
		}

		if len(criticalFailures) > 0 {
			fmt.Printf("\n%s TaskBridge cannot run until critical issues are resolved.\n", red("✗"))
			os.Exit(2)
		}

		if len(failures) > 0 {
			fmt.Printf("\n%s TaskBridge may not work correctly. Please address the failures above.\n", yellow("⚠"))
			os.Exit(1)
		}

		fmt.Printf("\n%s TaskBridge should work, but some warnings were detected.\n", green("✓"))
		os.Exit(0)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
