package jira

import (
	"fmt"
	"strings"
)

// MetadataError indicates a createmeta lookup failed with a non-success
// status from Jira. StatusCode carries the provider's status for direct
// surfacing to the end user.
type MetadataError struct {
	Op         string // "issue types" or "field schema"
	Project    string
	StatusCode int
	Body       string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("failed to fetch %s for project %s (status %d): %s", e.Op, e.Project, e.StatusCode, e.Body)
}

// ProjectNotFoundError indicates the createmeta response contained no
// project entry even after the alternate-parameter retry. This usually
// means a bad project key or missing permission, not a transport failure.
type ProjectNotFoundError struct {
	Project string
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("no project metadata found for %q, check project key and permissions", e.Project)
}

// NoIssueTypesError indicates the project has zero issue types configured.
type NoIssueTypesError struct {
	Project string
}

func (e *NoIssueTypesError) Error() string {
	return fmt.Sprintf("no issue types available for project %q", e.Project)
}

// InvalidIssueTypeError indicates the requested issue type matched nothing
// and no non-subtask fallback existed. ValidTypes holds the names the
// project actually offers, for caller display.
type InvalidIssueTypeError struct {
	Requested  string
	ValidTypes []string
}

func (e *InvalidIssueTypeError) Error() string {
	return fmt.Sprintf("invalid issue type %q, valid types: %s", e.Requested, strings.Join(e.ValidTypes, ", "))
}

// CreateError indicates the create-issue call itself was rejected.
// Message is the composed provider error: errorMessages entries plus
// "field: message" pairs joined with "; ", falling back to the raw body
// or status text when the body carries no structured errors.
type CreateError struct {
	StatusCode int
	Message    string
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to create issue (%d): %s", e.StatusCode, e.Message)
}
