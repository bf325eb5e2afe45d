package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbridge/internal/history"
	"taskbridge/internal/jira"
	"taskbridge/internal/types"
)

type drafterFunc func(ctx context.Context, project, instruction string) (*types.IssueDraft, error)

func (f drafterFunc) DraftIssue(ctx context.Context, project, instruction string) (*types.IssueDraft, error) {
	return f(ctx, project, instruction)
}

type creatorFunc func(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error)

func (f creatorFunc) CreateIssue(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error) {
	return f(ctx, project, draft)
}

type recorderFunc func(ctx context.Context, entry history.Entry) error

func (f recorderFunc) Record(ctx context.Context, entry history.Entry) error {
	return f(ctx, entry)
}

func okDrafter(draft types.IssueDraft) drafterFunc {
	return func(context.Context, string, string) (*types.IssueDraft, error) {
		d := draft
		return &d, nil
	}
}

func okCreator(key string) creatorFunc {
	return func(context.Context, string, types.IssueDraft) (*jira.CreateResult, error) {
		return &jira.CreateResult{
			Issue: jira.CreatedIssue{
				ID:  "10042",
				Key: key,
				Raw: json.RawMessage(`{"id":"10042","key":"` + key + `"}`),
			},
			Resolution: jira.Resolution{
				IssueTypeID:   "10",
				IssueTypeName: "Task",
				PriorityID:    "1",
				PriorityName:  "Highest",
				AccountID:     "acc-9",
			},
		}, nil
	}
}

func postCreate(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, TaskResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/create-jira-task", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestCreateTaskSuccess(t *testing.T) {
	var recorded *history.Entry
	var seenProject string

	s := New(Options{
		DefaultProject: "PROJ",
		Drafter: okDrafter(types.IssueDraft{
			Summary:     "Fix login timeout",
			Description: "Users are logged out after 5 minutes",
			IssueType:   "bug",
			Priority:    "urgent",
			Assignee:    "maria@example.com",
		}),
		Creator: creatorFunc(func(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error) {
			seenProject = project
			return okCreator("PROJ-42")(ctx, project, draft)
		}),
		Recorder: recorderFunc(func(_ context.Context, entry history.Entry) error {
			recorded = &entry
			return nil
		}),
	})

	rec, resp := postCreate(t, s, `{"instruction": "fix the login timeout bug, urgent, assign to Maria"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "PROJ-42", resp.TaskKey)
	assert.Equal(t, "Successfully created Jira task: PROJ-42", resp.Message)
	assert.Equal(t, "PROJ", seenProject, "blank project_key falls back to the default project")

	parsed, ok := resp.Details["parsed_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Fix login timeout", parsed["summary"])

	jiraResp, ok := resp.Details["jira_response"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PROJ-42", jiraResp["key"])

	require.NotNil(t, recorded)
	assert.Equal(t, "PROJ-42", recorded.IssueKey)
	assert.Equal(t, "bug", recorded.RequestedType)
	assert.Equal(t, "Task", recorded.ResolvedType)
	assert.Equal(t, "urgent", recorded.RequestedPriority)
	assert.Equal(t, "Highest", recorded.ResolvedPriority)
	assert.Equal(t, "acc-9", recorded.ResolvedAssignee)
}

func TestCreateTaskUsesRequestProject(t *testing.T) {
	var seenProject string
	s := New(Options{
		DefaultProject: "PROJ",
		Drafter:        okDrafter(types.IssueDraft{Summary: "s", Description: "d"}),
		Creator: creatorFunc(func(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error) {
			seenProject = project
			return okCreator("OPS-7")(ctx, project, draft)
		}),
	})

	rec, resp := postCreate(t, s, `{"instruction": "do the thing", "project_key": "OPS"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OPS", seenProject)
	assert.Equal(t, "OPS-7", resp.TaskKey)
}

func TestCreateTaskRejectsMissingInstruction(t *testing.T) {
	s := New(Options{
		Drafter: okDrafter(types.IssueDraft{}),
		Creator: okCreator("PROJ-1"),
	})

	for _, body := range []string{`{}`, `{"instruction": "   "}`, `not json`} {
		rec, resp := postCreate(t, s, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.False(t, resp.Success)
	}
}

func TestCreateTaskDrafterFailure(t *testing.T) {
	s := New(Options{
		Drafter: drafterFunc(func(context.Context, string, string) (*types.IssueDraft, error) {
			return nil, errors.New("model returned no valid JSON")
		}),
		Creator: okCreator("PROJ-1"),
	})

	rec, resp := postCreate(t, s, `{"instruction": "do the thing"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to create task: model returned no valid JSON", resp.Message)
	assert.Equal(t, "model returned no valid JSON", resp.Details["error"])
}

func TestCreateTaskErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid issue type",
			err:        &jira.InvalidIssueTypeError{Requested: "Nonsense", ValidTypes: []string{"Task", "Bug"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "project not found",
			err:        &jira.ProjectNotFoundError{Project: "NOPE"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no issue types",
			err:        &jira.NoIssueTypesError{Project: "PROJ"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "create rejected by provider",
			err:        &jira.CreateError{StatusCode: http.StatusBadRequest, Message: "priority: Field priority is required"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "metadata fetch unauthorized",
			err:        &jira.MetadataError{Op: "issue types", Project: "PROJ", StatusCode: http.StatusUnauthorized, Body: "auth"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "transport failure",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{
				Drafter: okDrafter(types.IssueDraft{Summary: "s", Description: "d"}),
				Creator: creatorFunc(func(context.Context, string, types.IssueDraft) (*jira.CreateResult, error) {
					return nil, tt.err
				}),
			})

			rec, resp := postCreate(t, s, `{"instruction": "do the thing"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Message, "Failed to create task: ")
		})
	}
}

func TestCreateTaskRecorderFailureDoesNotFailRequest(t *testing.T) {
	s := New(Options{
		Drafter: okDrafter(types.IssueDraft{Summary: "s", Description: "d"}),
		Creator: okCreator("PROJ-9"),
		Recorder: recorderFunc(func(context.Context, history.Entry) error {
			return errors.New("database is locked")
		}),
	})

	rec, resp := postCreate(t, s, `{"instruction": "do the thing"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestHealth(t *testing.T) {
	s := New(Options{Drafter: okDrafter(types.IssueDraft{}), Creator: okCreator("PROJ-1")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "healthy"}`, rec.Body.String())
}

func TestIndex(t *testing.T) {
	s := New(Options{Drafter: okDrafter(types.IssueDraft{}), Creator: okCreator("PROJ-1")})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TaskBridge API", body["message"])

	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, endpoints, "/create-jira-task")

	req = httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPanicRecovery(t *testing.T) {
	s := New(Options{
		Drafter: drafterFunc(func(context.Context, string, string) (*types.IssueDraft, error) {
			panic("boom")
		}),
		Creator: okCreator("PROJ-1"),
	})

	rec, resp := postCreate(t, s, `{"instruction": "do the thing"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "internal server error", resp.Message)
}
