package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"taskbridge/internal/types"
)

// issuePayload is the create-issue request body.
type issuePayload struct {
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Project     projectRef  `json:"project"`
	Summary     string      `json:"summary"`
	Description ADFDocument `json:"description"`
	IssueType   idRef       `json:"issuetype"`
	Priority    *idRef      `json:"priority,omitempty"`
	Assignee    *accountRef `json:"assignee,omitempty"`
	Labels      []string    `json:"labels,omitempty"`
	Components  []nameRef   `json:"components,omitempty"`
}

type projectRef struct {
	Key string `json:"key"`
}

type idRef struct {
	ID string `json:"id"`
}

type accountRef struct {
	AccountID string `json:"accountId"`
}

type nameRef struct {
	Name string `json:"name"`
}

// CreateResult pairs the provider's created-issue response with what
// each requested field resolved to.
type CreateResult struct {
	Issue      CreatedIssue
	Resolution Resolution
}

// CreateIssue resolves the draft's issue type, priority, and assignee
// against the project's metadata and submits the create call. Issue-type
// resolution runs first since priority is scoped by the resolved type id;
// priority and assignee then resolve concurrently, touching disjoint
// endpoints. Priority and assignee degrade to omission rather than
// failing creation.
func (c *Client) CreateIssue(ctx context.Context, project string, draft types.IssueDraft) (*CreateResult, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	issueType, err := c.ResolveIssueType(ctx, project, draft.IssueType)
	if err != nil {
		return nil, err
	}

	var (
		priority  *AllowedValue
		accountID string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		priority, err = c.ResolvePriority(gctx, project, issueType.ID, draft.Priority)
		return err
	})
	if draft.Assignee != "" {
		g.Go(func() error {
			accountID = c.ResolveAssignee(gctx, project, draft.Assignee)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolution := Resolution{
		IssueTypeID:   issueType.ID,
		IssueTypeName: issueType.Name,
		AccountID:     accountID,
	}
	fields := issueFields{
		Project:     projectRef{Key: project},
		Summary:     draft.Summary,
		Description: TextDocument(draft.Description),
		IssueType:   idRef{ID: issueType.ID},
		Labels:      draft.Labels,
	}
	if priority != nil {
		fields.Priority = &idRef{ID: priority.ID}
		resolution.PriorityID = priority.ID
		resolution.PriorityName = priority.Name
	}
	if accountID != "" {
		fields.Assignee = &accountRef{AccountID: accountID}
	}
	for _, name := range draft.Components {
		fields.Components = append(fields.Components, nameRef{Name: name})
	}

	status, body, err := c.postJSON(ctx, "/issue", issuePayload{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	if status != http.StatusCreated {
		return nil, &CreateError{StatusCode: status, Message: composeErrorMessage(status, body)}
	}

	var created CreatedIssue
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}
	created.Raw = body

	slog.Info("issue created",
		"project", project,
		"key", created.Key,
		"issueType", issueType.Name)
	return &CreateResult{Issue: created, Resolution: resolution}, nil
}
