package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"taskbridge/internal/history"
	"taskbridge/internal/jira"
)

// InstructionRequest is the create-task request body.
type InstructionRequest struct {
	Instruction string `json:"instruction"`
	ProjectKey  string `json:"project_key,omitempty"`
}

// TaskResponse is the uniform response envelope for the create-task
// route, for both outcomes.
type TaskResponse struct {
	Success bool           `json:"success"`
	TaskKey string         `json:"task_key,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req InstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failureResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeJSON(w, http.StatusBadRequest, failureResponse(errors.New("instruction is required")))
		return
	}

	project := req.ProjectKey
	if project == "" {
		project = s.defaultProject
	}

	draft, err := s.drafter.DraftIssue(r.Context(), project, req.Instruction)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, failureResponse(err))
		return
	}

	result, err := s.creator.CreateIssue(r.Context(), project, *draft)
	if err != nil {
		writeJSON(w, statusForError(err), failureResponse(err))
		return
	}

	if s.recorder != nil {
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
		if err := s.recorder.Record(r.Context(), entry); err != nil {
			slog.Warn("failed to record creation history", "issue", result.Issue.Key, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, TaskResponse{
		Success: true,
		TaskKey: result.Issue.Key,
		Message: fmt.Sprintf("Successfully created Jira task: %s", result.Issue.Key),
		Details: map[string]any{
			"parsed_data":   draft,
			"jira_response": json.RawMessage(result.Issue.Raw),
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "TaskBridge API",
		"endpoints": map[string]string{
			"/create-jira-task": "POST - Create a Jira task from natural language instruction",
			"/health":           "GET - Service health",
		},
	})
}

func failureResponse(err error) TaskResponse {
	return TaskResponse{
		Success: false,
		Message: "Failed to create task: " + err.Error(),
		Details: map[string]any{"error": err.Error()},
	}
}

// statusForError maps resolution failures onto the status codes the
// provider reported, and everything else onto 400 or 502.
func statusForError(err error) int {
	var metaErr *jira.MetadataError
	if errors.As(err, &metaErr) {
		if metaErr.StatusCode >= 400 {
			return metaErr.StatusCode
		}
		return http.StatusBadGateway
	}
	var createErr *jira.CreateError
	if errors.As(err, &createErr) {
		if createErr.StatusCode >= 400 {
			return createErr.StatusCode
		}
		return http.StatusBadGateway
	}

	var projectErr *jira.ProjectNotFoundError
	var noTypesErr *jira.NoIssueTypesError
	var typeErr *jira.InvalidIssueTypeError
	if errors.As(err, &projectErr) || errors.As(err, &noTypesErr) || errors.As(err, &typeErr) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
