package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskbridge/internal/calendar"
	"taskbridge/internal/config"
)

var actionsCmd = &cobra.Command{
	Use:   "actions [transcript-file]",
	Short: "Turn a call transcript into Google Calendar events",
	Long: `Extract the next best actions from a call transcript and schedule
them as Google Calendar events.

The transcript is read from the given file, or from stdin when the
argument is omitted or is "-". Actions with a due date become a
14:00-15:00 event on that day in the configured timezone; actions
without one are scheduled for the next hour.

The first run opens an OAuth consent flow in the browser and caches
the token next to the config.

Examples:
  taskbridge actions call-notes.txt
  cat transcript.txt | taskbridge actions
  taskbridge actions --dry-run --save-plan plan.yaml call-notes.txt`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		savePlan, _ := cmd.Flags().GetString("save-plan")

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		transcript, err := readTranscript(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		planner, err := newPlanner(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()

		fmt.Printf("%s Extracting actions from transcript...\n", cyan("→"))
		plan, err := planner.ExtractActions(ctx, transcript)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(plan.Actions) == 0 {
			fmt.Println("No actions found in transcript")
			return
		}

		fmt.Printf("%s Found %d action(s)\n", green("✓"), len(plan.Actions))
		for i := range plan.Actions {
			fmt.Printf("  • %s\n", plan.Actions[i].String())
		}

		if savePlan != "" {
			data, err := yaml.Marshal(plan)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to marshal plan: %v\n", err)
				os.Exit(1)
			}
			if err := os.WriteFile(savePlan, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to save plan: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s Plan saved to %s\n", green("✓"), savePlan)
		}

		if dryRun {
			fmt.Printf("\n%s Dry run, no calendar events created\n", yellow("⚠"))
			return
		}

		if err := cfg.ValidateForCalendar(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		client, err := newCalendarClient(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		events, err := client.InsertActionPlan(ctx, plan)
		for _, event := range events {
			fmt.Printf("%s Scheduled: %s\n", green("✓"), event.Summary)
			if event.HtmlLink != "" {
				fmt.Printf("  %s\n", event.HtmlLink)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// readTranscript reads the transcript from the file argument, or stdin
// when the argument is omitted or "-".
func readTranscript(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

// newCalendarClient loads credentials and a cached token, running the
// interactive consent flow when no token exists yet.
func newCalendarClient(ctx context.Context, cfg *config.Config) (*calendar.Client, error) {
	oauthCfg, err := calendar.LoadOAuthConfig(cfg.Calendar.CredentialsFile)
	if err != nil {
		return nil, err
	}

	token, err := calendar.LoadToken(cfg.Calendar.TokenFile)
	if err != nil {
		token, err = calendar.TokenFromWeb(ctx, oauthCfg)
		if err != nil {
			return nil, err
		}
		if err := calendar.SaveToken(cfg.Calendar.TokenFile, token); err != nil {
			return nil, err
		}
	}

	return calendar.NewClient(ctx, oauthCfg, token, cfg.Calendar.CalendarID, cfg.Calendar.Timezone)
}

func init() {
	actionsCmd.Flags().Bool("dry-run", false, "Extract and print actions without creating events")
	actionsCmd.Flags().String("save-plan", "", "Write the extracted action plan to a YAML file")
	rootCmd.AddCommand(actionsCmd)
}
