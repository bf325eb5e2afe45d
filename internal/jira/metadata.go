package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// IssueTypes returns the issue types configured for a project, fetching
// createmeta on first use and caching the result for the process
// lifetime. Some Jira deployments reject the plural projectKeys
// parameter, so an empty result is retried once with the singular form
// before reporting the project as not found.
func (c *Client) IssueTypes(ctx context.Context, project string) ([]IssueType, error) {
	c.mu.RLock()
	cached, ok := c.issueTypes[project]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	query := url.Values{"projectKeys": {project}, "expand": {"projects.issuetypes"}}
	projects, err := c.fetchCreateMeta(ctx, "issue types", project, query)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		query = url.Values{"projectKey": {project}, "expand": {"projects.issuetypes"}}
		projects, err = c.fetchCreateMeta(ctx, "issue types", project, query)
		if err != nil {
			return nil, err
		}
	}
	if len(projects) == 0 {
		return nil, &ProjectNotFoundError{Project: project}
	}

	types := projects[0].IssueTypes
	c.mu.Lock()
	c.issueTypes[project] = types
	c.mu.Unlock()
	return types, nil
}

// FieldSchema returns the create-screen field metadata for one issue
// type, cached per (project, issue type) pair. When the keyed query
// returns no project entry, the lookup is retried by numeric project id.
func (c *Client) FieldSchema(ctx context.Context, project, issueTypeID string) (map[string]FieldMeta, error) {
	cacheKey := project + ":" + issueTypeID
	c.mu.RLock()
	cached, ok := c.fieldSchema[cacheKey]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	query := url.Values{
		"projectKeys":  {project},
		"issuetypeIds": {issueTypeID},
		"expand":       {"projects.issuetypes.fields"},
	}
	projects, err := c.fetchCreateMeta(ctx, "field schema", project, query)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		projects = c.fieldSchemaByProjectID(ctx, project, issueTypeID)
	}
	if len(projects) == 0 {
		return nil, &ProjectNotFoundError{Project: project}
	}

	fields := map[string]FieldMeta{}
	for _, it := range projects[0].IssueTypes {
		if it.ID == issueTypeID {
			fields = it.Fields
			break
		}
	}

	c.mu.Lock()
	c.fieldSchema[cacheKey] = fields
	c.mu.Unlock()
	return fields, nil
}

// fetchCreateMeta issues one createmeta query and decodes the project
// entries. Non-success statuses become a MetadataError carrying the
// provider's status and body.
func (c *Client) fetchCreateMeta(ctx context.Context, op, project string, query url.Values) ([]createMetaProject, error) {
	status, body, err := c.get(ctx, "/issue/createmeta", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s for project %s: %w", op, project, err)
	}
	if status != http.StatusOK {
		return nil, &MetadataError{Op: op, Project: project, StatusCode: status, Body: strings.TrimSpace(string(body))}
	}
	var meta createMetaResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode createmeta response: %w", err)
	}
	return meta.Projects, nil
}

// fieldSchemaByProjectID resolves the project's numeric id and retries
// the field-schema query with projectIds. Failures here are logged and
// reported as "no projects" so the caller raises ProjectNotFound.
func (c *Client) fieldSchemaByProjectID(ctx context.Context, project, issueTypeID string) []createMetaProject {
	status, body, err := c.get(ctx, "/project/"+project, nil)
	if err != nil || status != http.StatusOK {
		slog.Debug("project id lookup failed", "project", project, "status", status, "error", err)
		return nil
	}
	var info projectInfo
	if err := json.Unmarshal(body, &info); err != nil || info.ID == "" {
		slog.Debug("project id lookup returned no id", "project", project)
		return nil
	}

	query := url.Values{
		"projectIds":   {info.ID},
		"issuetypeIds": {issueTypeID},
		"expand":       {"projects.issuetypes.fields"},
	}
	projects, err := c.fetchCreateMeta(ctx, "field schema", project, query)
	if err != nil {
		slog.Debug("field schema retry by project id failed", "project", project, "error", err)
		return nil
	}
	return projects
}
