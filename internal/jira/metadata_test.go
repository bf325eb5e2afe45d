package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:  srv.URL,
		Email:    "bot@example.com",
		APIToken: "token",
		RPS:      1000,
	})
	require.NoError(t, err)
	return c
}

func TestIssueTypesCachesPerProject(t *testing.T) {
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		hits++
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "token", pass)
		assert.Equal(t, "DEMO", r.URL.Query().Get("projectKeys"))
		assert.Equal(t, "projects.issuetypes", r.URL.Query().Get("expand"))
		fmt.Fprint(w, `{"projects":[{"id":"10000","key":"DEMO","issuetypes":[
			{"id":"10","name":"Task","subtask":false},
			{"id":"11","name":"Sub-task","subtask":true}]}]}`)
	})
	c := newTestClient(t, mux)

	types, err := c.IssueTypes(context.Background(), "DEMO")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Task", types[0].Name)
	assert.True(t, types[1].Subtask)

	_, err = c.IssueTypes(context.Background(), "DEMO")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second lookup should hit the cache")
}

func TestIssueTypesRetriesWithSingularParam(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		if r.URL.Query().Get("projectKey") == "DEMO" {
			fmt.Fprint(w, `{"projects":[{"key":"DEMO","issuetypes":[{"id":"10","name":"Task"}]}]}`)
			return
		}
		fmt.Fprint(w, `{"projects":[]}`)
	})
	c := newTestClient(t, mux)

	types, err := c.IssueTypes(context.Background(), "DEMO")
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "10", types[0].ID)
	assert.Len(t, queries, 2, "plural form should be retried with the singular form")
}

func TestIssueTypesProjectNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"projects":[]}`)
	})
	c := newTestClient(t, mux)

	_, err := c.IssueTypes(context.Background(), "NOPE")
	var notFound *ProjectNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "NOPE", notFound.Project)
}

func TestIssueTypesMetadataError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errorMessages":["Unauthorized"]}`)
	})
	c := newTestClient(t, mux)

	_, err := c.IssueTypes(context.Background(), "DEMO")
	var metaErr *MetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, http.StatusUnauthorized, metaErr.StatusCode)
	assert.Equal(t, "issue types", metaErr.Op)
}

func TestFieldSchemaCachesPerIssueType(t *testing.T) {
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "projects.issuetypes.fields", r.URL.Query().Get("expand"))
		typeID := r.URL.Query().Get("issuetypeIds")
		fmt.Fprintf(w, `{"projects":[{"key":"DEMO","issuetypes":[{"id":%q,"name":"Task","fields":{
			"priority":{"required":false,"name":"Priority","allowedValues":[{"id":"1","name":"Highest"}]}}}]}]}`, typeID)
	})
	c := newTestClient(t, mux)

	fields, err := c.FieldSchema(context.Background(), "DEMO", "10")
	require.NoError(t, err)
	require.Contains(t, fields, "priority")
	assert.Equal(t, "Highest", fields["priority"].AllowedValues[0].Name)

	_, err = c.FieldSchema(context.Background(), "DEMO", "10")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	_, err = c.FieldSchema(context.Background(), "DEMO", "11")
	require.NoError(t, err)
	assert.Equal(t, 2, hits, "different issue type id is a different cache key")
}

func TestFieldSchemaFallsBackToProjectID(t *testing.T) {
	var createmetaQueries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		createmetaQueries = append(createmetaQueries, r.URL.RawQuery)
		if r.URL.Query().Get("projectIds") == "10000" {
			fmt.Fprint(w, `{"projects":[{"id":"10000","issuetypes":[{"id":"10","fields":{
				"summary":{"required":true,"name":"Summary"}}}]}]}`)
			return
		}
		fmt.Fprint(w, `{"projects":[]}`)
	})
	mux.HandleFunc("/rest/api/3/project/DEMO", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"10000","key":"DEMO"}`)
	})
	c := newTestClient(t, mux)

	fields, err := c.FieldSchema(context.Background(), "DEMO", "10")
	require.NoError(t, err)
	assert.Contains(t, fields, "summary")
	assert.Len(t, createmetaQueries, 2)
}

func TestFieldSchemaMissingTypeYieldsEmptyMap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"projects":[{"key":"DEMO","issuetypes":[{"id":"99","fields":{}}]}]}`)
	})
	c := newTestClient(t, mux)

	fields, err := c.FieldSchema(context.Background(), "DEMO", "10")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestFieldSchemaProjectNotFoundAfterFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/createmeta", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"projects":[]}`)
	})
	mux.HandleFunc("/rest/api/3/project/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	_, err := c.FieldSchema(context.Background(), "NOPE", "10")
	require.True(t, errors.As(err, new(*ProjectNotFoundError)))
}
