package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"

	"taskbridge/internal/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

const maxResponseTokens = 4096

// Planner converts free-form text into structured records: issue drafts
// from instructions, action plans from call transcripts. It is the
// upstream collaborator of the Jira client; its output is untrusted user
// text that still has to be resolved against project metadata.
type Planner struct {
	client  *anthropic.Client
	model   string
	retry   RetryConfig
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
}

// Config holds planner configuration.
type Config struct {
	APIKey string // if empty, read from ANTHROPIC_API_KEY
	Model  string // default: DefaultModel
	Retry  RetryConfig
}

// NewPlanner creates a Planner.
func NewPlanner(cfg Config) (*Planner, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var breaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}
	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Planner{
		client:  &client,
		model:   model,
		retry:   retry,
		breaker: breaker,
		sem:     sem,
	}, nil
}

// DraftIssue turns a natural-language instruction into an issue draft
// for the given project. The draft's optional fields are free-form
// strings; resolving them against Jira metadata is the caller's job.
func (p *Planner) DraftIssue(ctx context.Context, project, instruction string) (*types.IssueDraft, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("instruction is empty")
	}

	prompt := fmt.Sprintf(draftIssuePrompt, project, strings.TrimSpace(instruction))
	text, err := p.complete(ctx, "issue draft", prompt)
	if err != nil {
		return nil, err
	}

	draft, err := Parse[types.IssueDraft](text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issue draft: %w", err)
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("model returned incomplete draft: %w", err)
	}
	return &draft, nil
}

// ExtractActions pulls the next best actions out of a call transcript.
// An empty action list is a valid result.
func (p *Planner) ExtractActions(ctx context.Context, transcript string) (*types.ActionPlan, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	prompt := fmt.Sprintf(extractActionsPrompt, strings.TrimSpace(transcript))
	text, err := p.complete(ctx, "action extraction", prompt)
	if err != nil {
		return nil, err
	}

	plan, err := Parse[types.ActionPlan](text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse action plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("model returned invalid action plan: %w", err)
	}
	return &plan, nil
}

// complete sends one prompt and returns the concatenated text blocks of
// the response.
func (p *Planner) complete(ctx context.Context, operation, prompt string) (string, error) {
	var response *anthropic.Message
	err := p.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := p.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model),
			MaxTokens: maxResponseTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
