package jira

import "encoding/json"

// IssueType is one issue type configured for a project, as returned by
// the createmeta endpoint. Fields is only populated when the lookup was
// expanded with projects.issuetypes.fields.
type IssueType struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Subtask bool                 `json:"subtask"`
	Fields  map[string]FieldMeta `json:"fields,omitempty"`
}

// FieldMeta describes one field on an issue-type's create screen.
type FieldMeta struct {
	Required      bool           `json:"required"`
	Name          string         `json:"name"`
	AllowedValues []AllowedValue `json:"allowedValues,omitempty"`
}

// AllowedValue is one enumerated value a field accepts.
type AllowedValue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is a Jira user as returned by the user-search endpoints.
// EmailAddress may be empty on Jira Cloud due to privacy settings.
type User struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
	Active       bool   `json:"active"`
}

// CreatedIssue is the provider response from a successful create call.
// Raw preserves the full body for callers that surface it verbatim.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`

	Raw json.RawMessage `json:"-"`
}

// Resolution records what each requested field resolved to, for logging
// and for the creation history ledger. Empty strings mean the field was
// omitted from the payload.
type Resolution struct {
	IssueTypeID   string
	IssueTypeName string
	PriorityID    string
	PriorityName  string
	AccountID     string
}

// createMetaResponse is the envelope of GET /issue/createmeta.
type createMetaResponse struct {
	Projects []createMetaProject `json:"projects"`
}

type createMetaProject struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	IssueTypes []IssueType `json:"issuetypes"`
}

// projectInfo is the subset of GET /project/{key} used for the
// numeric-id fallback in field schema lookups.
type projectInfo struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// errorResponse is Jira's structured error body.
type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}
