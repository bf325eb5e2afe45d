package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiPath        = "/rest/api/3"
	defaultTimeout = 30 * time.Second
	defaultRPS     = 5
)

// Config holds the connection settings for one Jira Cloud site.
type Config struct {
	BaseURL  string
	Email    string
	APIToken string
	Timeout  time.Duration // zero means 30s
	RPS      float64       // client-side request rate cap, zero means 5/s
}

// Client talks to a single Jira site over REST v3 with basic auth.
// It memoizes createmeta lookups for the lifetime of the process, so
// construct one Client per site and share it across requests. Cache
// population may race under concurrent use; entries are idempotent, so
// last writer wins.
type Client struct {
	baseURL  string
	email    string
	apiToken string
	http     *http.Client
	limiter  *rate.Limiter

	mu          sync.RWMutex
	issueTypes  map[string][]IssueType          // project key -> issue types
	fieldSchema map[string]map[string]FieldMeta // "project:issueTypeID" -> field metadata
}

// New creates a Client from cfg. BaseURL, Email, and APIToken are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira base URL is required")
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("jira email and API token are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		email:       cfg.Email,
		apiToken:    cfg.APIToken,
		http:        &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		issueTypes:  make(map[string][]IssueType),
		fieldSchema: make(map[string]map[string]FieldMeta),
	}, nil
}

// get performs an authenticated GET and returns the status code with the
// drained body. Transport failures return an error; non-2xx statuses do
// not, since callers branch on them.
func (c *Client) get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	u := c.baseURL + apiPath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// postJSON performs an authenticated POST with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPath+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	slog.Debug("jira request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))
	return resp.StatusCode, body, nil
}

// composeErrorMessage flattens Jira's structured error body into one
// human-readable line: errorMessages entries first, then "field: message"
// pairs in field order, joined with "; ". Falls back to the raw body,
// then to the HTTP status text.
func composeErrorMessage(statusCode int, body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		parts := make([]string, 0, len(er.ErrorMessages)+len(er.Errors))
		parts = append(parts, er.ErrorMessages...)
		for _, field := range sortedKeys(er.Errors) {
			parts = append(parts, fmt.Sprintf("%s: %s", field, er.Errors[field]))
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(statusCode)
}

// sortedKeys keeps the composed message deterministic; Go maps iterate
// in random order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
