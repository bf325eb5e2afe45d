package repl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"taskbridge/internal/history"
	"taskbridge/internal/jira"
	"taskbridge/internal/types"
)

// Drafter turns a natural-language instruction into an issue draft.
type Drafter interface {
	DraftIssue(ctx context.Context, project, instruction string) (*types.IssueDraft, error)
}

// IssueCreator submits a draft to the tracker.
type IssueCreator interface {
	CreateIssue(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error)
}

// Recorder persists and lists created issues.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// REPL represents the interactive shell
type REPL struct {
	drafter  Drafter
	creator  IssueCreator
	recorder Recorder
	project  string
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Drafter Drafter
	Creator IssueCreator
	// Recorder is optional. When nil, the recent command is unavailable.
	Recorder Recorder
	Project  string
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Drafter == nil {
		return nil, fmt.Errorf("drafter is required")
	}
	if cfg.Creator == nil {
		return nil, fmt.Errorf("issue creator is required")
	}

	project := cfg.Project
	if project == "" {
		project = "PROJ"
	}

	r := &REPL{
		drafter:  cfg.Drafter,
		creator:  cfg.Creator,
		recorder: cfg.Recorder,
		project:  project,
		commands: make(map[string]CommandHandler),
	}

	r.registerCommands()

	return r, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	prompt := cyan("taskbridge> ")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// processInput processes a single line of input. Anything that is not
// a registered command is treated as an instruction to file.
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	if handler, ok := r.commands[parts[0]]; ok {
		return handler(parts[1:])
	}

	return r.createIssue(line)
}

func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
	r.commands["project"] = r.cmdProject
	r.commands["recent"] = r.cmdRecent
}

func (r *REPL) createIssue(instruction string) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s Drafting issue for %s...\n", cyan("→"), r.project)

	draft, err := r.drafter.DraftIssue(r.ctx, r.project, instruction)
	if err != nil {
		return fmt.Errorf("failed to draft issue: %w", err)
	}

	result, err := r.creator.CreateIssue(r.ctx, r.project, *draft)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Created %s: %s\n", green("✓"), result.Issue.Key, draft.Summary)
	if result.Resolution.IssueTypeName != "" {
		fmt.Printf("  Type:     %s\n", result.Resolution.IssueTypeName)
	}
	if result.Resolution.PriorityName != "" {
		fmt.Printf("  Priority: %s\n", result.Resolution.PriorityName)
	}
	if result.Resolution.AccountID != "" {
		fmt.Printf("  Assignee: %s\n", result.Resolution.AccountID)
	}

	if r.recorder != nil {
		entry := history.Entry{
			IssueKey:          result.Issue.Key,
			Project:           r.project,
			Summary:           draft.Summary,
			RequestedType:     draft.IssueType,
			ResolvedType:      result.Resolution.IssueTypeName,
			RequestedPriority: draft.Priority,
			ResolvedPriority:  result.Resolution.PriorityName,
			RequestedAssignee: draft.Assignee,
			ResolvedAssignee:  result.Resolution.AccountID,
		}
		if err := r.recorder.Record(r.ctx, entry); err != nil {
			slog.Warn("failed to record creation history", "issue", result.Issue.Key, "error", err)
		}
	}

	return nil
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("TaskBridge"))
	fmt.Println("Natural language to Jira issues")
	fmt.Println()
	fmt.Printf("Target project: %s\n", r.project)
	fmt.Println("Type an instruction to file an issue, 'help' for commands, 'exit' to quit")
	fmt.Println()
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"help, ?", "Show this help message"},
		{"project [KEY]", "Show or switch the target project"},
		{"recent", "List recently created issues"},
		{"exit, quit", "Exit the REPL"},
	}
	for _, cmd := range commands {
		fmt.Printf("  %s  %s\n", green(cmd.name), cmd.desc)
	}

	fmt.Println()
	fmt.Println("Anything else is treated as an instruction:")
	fmt.Println("  'fix the login timeout bug, urgent, assign to Maria'")
	fmt.Println("  'add dark mode to the settings page'")
	fmt.Println()

	return nil
}

func (r *REPL) cmdProject(args []string) error {
	if len(args) == 0 {
		fmt.Printf("Target project: %s\n", r.project)
		return nil
	}
	r.project = strings.ToUpper(args[0])
	fmt.Printf("Target project set to %s\n", r.project)
	return nil
}

func (r *REPL) cmdRecent(args []string) error {
	if r.recorder == nil {
		return fmt.Errorf("history is not available")
	}

	entries, err := r.recorder.List(r.ctx, 10)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No issues created yet")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	for _, e := range entries {
		fmt.Printf("  %s  %s  %s\n", green(e.IssueKey), e.CreatedAt.Format("2006-01-02 15:04"), e.Summary)
	}
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s Goodbye!\n", green("✓"))
	if r.rl != nil {
		r.rl.Close()
	}
	return io.EOF
}
