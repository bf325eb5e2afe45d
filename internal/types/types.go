package types

import (
	"fmt"
	"strings"
	"time"
)

// IssueDraft is the structured issue produced by the instruction parser.
// Every optional field is free-form user text that still has to be resolved
// against live Jira project metadata before it can appear in a create payload.
type IssueDraft struct {
	Summary     string   `json:"summary" yaml:"summary"`
	Description string   `json:"description" yaml:"description"`
	IssueType   string   `json:"issue_type,omitempty" yaml:"issue_type,omitempty"`
	Priority    string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Components  []string `json:"components,omitempty" yaml:"components,omitempty"`
	Assignee    string   `json:"assignee,omitempty" yaml:"assignee,omitempty"`
}

// Validate checks that the draft carries the fields issue creation cannot
// proceed without. Optional fields are validated later, against project
// metadata, not here.
func (d *IssueDraft) Validate() error {
	if strings.TrimSpace(d.Summary) == "" {
		return fmt.Errorf("summary is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("description is required")
	}
	return nil
}

// ActionItem is a single "next best action" extracted from a call transcript.
type ActionItem struct {
	Action   string `json:"action" yaml:"action"`
	Owner    string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Due      string `json:"due,omitempty" yaml:"due,omitempty"` // YYYY-MM-DD, empty when unknown
	Priority string `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Validate checks the action item is usable.
func (a *ActionItem) Validate() error {
	if strings.TrimSpace(a.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if a.Due != "" {
		if _, err := time.Parse("2006-01-02", a.Due); err != nil {
			return fmt.Errorf("invalid due date %q: %w", a.Due, err)
		}
	}
	return nil
}

// DueDate parses the Due field. The boolean is false when no due date is set.
func (a *ActionItem) DueDate() (time.Time, bool) {
	if a.Due == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", a.Due)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (a *ActionItem) String() string {
	parts := []string{"Action: " + a.Action}
	if a.Owner != "" {
		parts = append(parts, "Owner: "+a.Owner)
	}
	if a.Due != "" {
		parts = append(parts, "Due: "+a.Due)
	}
	if a.Priority != "" {
		parts = append(parts, "Priority: "+a.Priority)
	}
	return strings.Join(parts, " | ")
}

// ActionPlan is the full list of actions extracted from one transcript.
// An empty list is a valid plan: it means the transcript contained no
// follow-ups.
type ActionPlan struct {
	Actions []ActionItem `json:"actions_list" yaml:"actions_list"`
}

// Validate checks every action in the plan.
func (p *ActionPlan) Validate() error {
	for i := range p.Actions {
		if err := p.Actions[i].Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
