package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// preferredIssueTypes is the default-selection order, by normalized name.
var preferredIssueTypes = []string{"task", "bug", "story", "epic"}

// issueTypeMatchers are tried in order against the requested name;
// first match wins.
var issueTypeMatchers = []func(available []IssueType, requested string) *IssueType{
	matchTypeExact,
	matchTypeNormalized,
}

// priorityMatchers are tried in order against the allowed values;
// first match wins.
var priorityMatchers = []func(allowed []AllowedValue, requested string) *AllowedValue{
	matchPriorityExact,
	matchPriorityNormalized,
}

// userPickers order the candidate tie-break: account id equality, email
// equality, display name equality, display name prefix, then the first
// candidate in returned order.
var userPickers = []func(users []User, identifier string) *User{
	pickByAccountID,
	pickByEmail,
	pickByDisplayName,
	pickByDisplayNamePrefix,
	pickFirst,
}

// ResolveIssueType maps a requested issue-type name onto one of the
// project's configured types. An empty request picks a sensible default.
// A request that matches nothing falls back to the default policy, but
// without the subtask-of-last-resort tier; when that yields nothing the
// error lists the valid names for caller display.
func (c *Client) ResolveIssueType(ctx context.Context, project, requested string) (*IssueType, error) {
	available, err := c.IssueTypes(ctx, project)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, &NoIssueTypesError{Project: project}
	}

	if strings.TrimSpace(requested) == "" {
		t := defaultIssueType(available, true)
		slog.Debug("issue type defaulted", "project", project, "resolved", t.Name)
		return t, nil
	}

	for _, match := range issueTypeMatchers {
		if t := match(available, requested); t != nil {
			return t, nil
		}
	}

	if t := defaultIssueType(available, false); t != nil {
		slog.Info("requested issue type not found, using default",
			"project", project,
			"requested", requested,
			"resolved", t.Name)
		return t, nil
	}
	return nil, &InvalidIssueTypeError{Requested: requested, ValidTypes: typeNames(available)}
}

// ResolvePriority maps a requested priority onto the allowed values of
// the issue type's priority field. Returns nil without error when the
// request is empty, the create screen has no priority field, the field
// enumerates no values, or nothing matches; an unmapped priority never
// blocks issue creation.
func (c *Client) ResolvePriority(ctx context.Context, project, issueTypeID, requested string) (*AllowedValue, error) {
	if strings.TrimSpace(requested) == "" {
		return nil, nil
	}
	fields, err := c.FieldSchema(ctx, project, issueTypeID)
	if err != nil {
		return nil, err
	}
	priority, ok := fields["priority"]
	if !ok || len(priority.AllowedValues) == 0 {
		slog.Debug("priority field not configured, omitting",
			"project", project,
			"issueType", issueTypeID)
		return nil, nil
	}

	for _, match := range priorityMatchers {
		if v := match(priority.AllowedValues, requested); v != nil {
			return v, nil
		}
	}
	slog.Info("requested priority not found, omitting",
		"project", project,
		"requested", requested)
	return nil, nil
}

// ResolveAssignee maps a free-form identifier (email, display name, or
// account id) to an account id assignable in the project. Each step of
// the cascade tolerates transport failure; an identifier no step can
// resolve yields "" so the issue is created unassigned.
func (c *Client) ResolveAssignee(ctx context.Context, project, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}

	query := url.Values{"project": {project}, "query": {identifier}, "maxResults": {"20"}}
	if users, err := c.searchUsers(ctx, "/user/assignable/search", query); err != nil {
		slog.Warn("assignable user search failed", "project", project, "error", err)
	} else if u := pickUser(users, identifier); u != nil {
		return u.AccountID
	}

	if looksLikeAccountID(identifier) {
		if ok, err := c.verifyAccountID(ctx, identifier); err != nil {
			slog.Warn("account id verification failed", "error", err)
		} else if ok {
			return identifier
		}
	}

	query = url.Values{"query": {identifier}, "maxResults": {"20"}}
	if users, err := c.searchUsers(ctx, "/user/search", query); err != nil {
		slog.Warn("global user search failed", "error", err)
	} else if u := pickUser(users, identifier); u != nil {
		return u.AccountID
	}

	slog.Info("assignee not resolved, leaving unassigned",
		"project", project,
		"identifier", identifier)
	return ""
}

// defaultIssueType applies the preferred-name policy: the first of
// task, bug, story, epic present as a non-subtask type, then the first
// non-subtask type in returned order, then, when withSubtasks is set,
// the first type regardless. Returns nil when nothing qualifies.
func defaultIssueType(available []IssueType, withSubtasks bool) *IssueType {
	byToken := make(map[string]*IssueType, len(available))
	for i := range available {
		byToken[NormalizeIssueTypeName(available[i].Name)] = &available[i]
	}
	for _, pref := range preferredIssueTypes {
		if t, ok := byToken[pref]; ok && !t.Subtask {
			return t
		}
	}
	for i := range available {
		if !available[i].Subtask {
			return &available[i]
		}
	}
	if withSubtasks && len(available) > 0 {
		return &available[0]
	}
	return nil
}

func typeNames(available []IssueType) []string {
	names := make([]string, 0, len(available))
	for _, t := range available {
		if t.Name != "" {
			names = append(names, t.Name)
		}
	}
	return names
}

func matchTypeExact(available []IssueType, requested string) *IssueType {
	want := strings.ToLower(strings.TrimSpace(requested))
	for i := range available {
		if strings.ToLower(strings.TrimSpace(available[i].Name)) == want {
			return &available[i]
		}
	}
	return nil
}

func matchTypeNormalized(available []IssueType, requested string) *IssueType {
	want := NormalizeIssueTypeName(requested)
	for i := range available {
		if NormalizeIssueTypeName(available[i].Name) == want {
			return &available[i]
		}
	}
	return nil
}

func matchPriorityExact(allowed []AllowedValue, requested string) *AllowedValue {
	want := strings.ToLower(strings.TrimSpace(requested))
	for i := range allowed {
		if strings.ToLower(strings.TrimSpace(allowed[i].Name)) == want {
			return &allowed[i]
		}
	}
	return nil
}

func matchPriorityNormalized(allowed []AllowedValue, requested string) *AllowedValue {
	want := NormalizePriorityName(requested)
	for i := range allowed {
		if NormalizePriorityName(allowed[i].Name) == want {
			return &allowed[i]
		}
	}
	return nil
}

// pickUser selects the best candidate from a search result. Returns nil
// only for an empty list; a non-empty list always yields a candidate.
func pickUser(users []User, identifier string) *User {
	for _, pick := range userPickers {
		if u := pick(users, identifier); u != nil {
			return u
		}
	}
	return nil
}

func pickByAccountID(users []User, identifier string) *User {
	for i := range users {
		if strings.TrimSpace(users[i].AccountID) == identifier {
			return &users[i]
		}
	}
	return nil
}

// pickByEmail matches case-insensitively; email may be withheld by Jira
// Cloud privacy settings, in which case it never matches.
func pickByEmail(users []User, identifier string) *User {
	want := strings.ToLower(identifier)
	for i := range users {
		email := strings.ToLower(strings.TrimSpace(users[i].EmailAddress))
		if email != "" && email == want {
			return &users[i]
		}
	}
	return nil
}

func pickByDisplayName(users []User, identifier string) *User {
	want := strings.ToLower(identifier)
	for i := range users {
		name := strings.ToLower(strings.TrimSpace(users[i].DisplayName))
		if name != "" && name == want {
			return &users[i]
		}
	}
	return nil
}

func pickByDisplayNamePrefix(users []User, identifier string) *User {
	want := strings.ToLower(identifier)
	for i := range users {
		name := strings.ToLower(strings.TrimSpace(users[i].DisplayName))
		if name != "" && strings.HasPrefix(name, want) {
			return &users[i]
		}
	}
	return nil
}

func pickFirst(users []User, _ string) *User {
	if len(users) == 0 {
		return nil
	}
	return &users[0]
}

// looksLikeAccountID reports whether s is plausible as an opaque Jira
// account id: letters, digits, ':' and '-' only.
func looksLikeAccountID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ':' && r != '-' {
			return false
		}
	}
	return true
}

func (c *Client) searchUsers(ctx context.Context, path string, query url.Values) ([]User, error) {
	status, body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("user search returned status %d: %s", status, strings.TrimSpace(string(body)))
	}
	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}
	return users, nil
}

func (c *Client) verifyAccountID(ctx context.Context, accountID string) (bool, error) {
	status, _, err := c.get(ctx, "/user", url.Values{"accountId": {accountID}})
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}
