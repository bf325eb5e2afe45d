package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskbridge/internal/history"
)

var createCmd = &cobra.Command{
	Use:   "create \"instruction\"",
	Short: "Create one Jira issue from a natural-language instruction",
	Long: `Draft an issue from a free-text instruction and submit it to Jira.

The instruction is parsed by Claude into a structured draft, then the
requested issue type, priority, and assignee are resolved against the
target project's metadata before the create request is sent.

Examples:
  taskbridge create "fix the login timeout bug, urgent, assign to Maria"
  taskbridge create --project OPS --dry-run "rotate the staging TLS certs"
  taskbridge create --save-draft draft.yaml "add dark mode to settings"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		project, _ := cmd.Flags().GetString("project")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		saveDraft, _ := cmd.Flags().GetString("save-draft")

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if project == "" {
			project = cfg.Jira.DefaultProject
		}

		planner, err := newPlanner(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()

		fmt.Printf("%s Drafting issue for %s...\n", cyan("→"), project)
		draft, err := planner.DraftIssue(ctx, project, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to draft issue: %v\n", err)
			os.Exit(1)
		}

		if saveDraft != "" {
			data, err := yaml.Marshal(draft)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to marshal draft: %v\n", err)
				os.Exit(1)
			}
			if err := os.WriteFile(saveDraft, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to save draft: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s Draft saved to %s\n", green("✓"), saveDraft)
		}

		client, err := newJiraClient(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if dryRun {
			issueType, err := client.ResolveIssueType(ctx, project, draft.IssueType)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			priority, err := client.ResolvePriority(ctx, project, issueType.ID, draft.Priority)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			accountID := client.ResolveAssignee(ctx, project, draft.Assignee)

			fmt.Printf("\n%s Dry run, nothing submitted\n\n", yellow("⚠"))
			fmt.Printf("  Project:   %s\n", project)
			fmt.Printf("  Summary:   %s\n", draft.Summary)
			fmt.Printf("  Type:      %s (id %s)\n", issueType.Name, issueType.ID)
			switch {
			case priority != nil:
				fmt.Printf("  Priority:  %s (id %s)\n", priority.Name, priority.ID)
			case draft.Priority != "":
				fmt.Printf("  Priority:  %q not recognized, project default applies\n", draft.Priority)
			}
			switch {
			case accountID != "":
				fmt.Printf("  Assignee:  %s\n", accountID)
			case draft.Assignee != "":
				fmt.Printf("  Assignee:  %q could not be resolved, field will be omitted\n", draft.Assignee)
			}
			if len(draft.Labels) > 0 {
				fmt.Printf("  Labels:    %s\n", strings.Join(draft.Labels, ", "))
			}
			if len(draft.Components) > 0 {
				fmt.Printf("  Components: %s\n", strings.Join(draft.Components, ", "))
			}
			return
		}

		result, err := client.CreateIssue(ctx, project, *draft)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Created %s: %s\n", green("✓"), result.Issue.Key, draft.Summary)
		fmt.Printf("  Type:     %s\n", result.Resolution.IssueTypeName)
		if result.Resolution.PriorityName != "" {
			fmt.Printf("  Priority: %s\n", result.Resolution.PriorityName)
		}
		if result.Resolution.AccountID != "" {
			fmt.Printf("  Assignee: %s\n", result.Resolution.AccountID)
		} else if draft.Assignee != "" {
			fmt.Printf("  Assignee: %q could not be resolved, left unassigned\n", draft.Assignee)
		}
		fmt.Printf("  %s/browse/%s\n", strings.TrimRight(cfg.Jira.BaseURL, "/"), result.Issue.Key)

		if store, err := openHistory(cfg); err != nil {
			slog.Warn("history database unavailable", "path", cfg.History.Path, "error", err)
		} else {
			defer store.Close()
			entry := history.Entry{
				IssueKey:          result.Issue.Key,
				Project:           project,
				Summary:           draft.Summary,
				RequestedType:     draft.IssueType,
				ResolvedType:      result.Resolution.IssueTypeName,
				RequestedPriority: draft.Priority,
				ResolvedPriority:  result.Resolution.PriorityName,
				RequestedAssignee: draft.Assignee,
				ResolvedAssignee:  result.Resolution.AccountID,
			}
			if err := store.Record(ctx, entry); err != nil {
				slog.Warn("failed to record creation history", "issue", result.Issue.Key, "error", err)
			}
		}
	},
}

func init() {
	createCmd.Flags().StringP("project", "p", "", "Target project key (default from config)")
	createCmd.Flags().Bool("dry-run", false, "Resolve the draft against project metadata without submitting")
	createCmd.Flags().String("save-draft", "", "Write the parsed draft to a YAML file")
	rootCmd.AddCommand(createCmd)
}
