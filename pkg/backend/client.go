// Package backend is the HTTP client for the Smart Form Guide backend: field
// analysis uploads, project listing, and AI field mapping. The auto-fill
// response path degrades gracefully: a noisy or non-JSON mapping body goes
// through a salvage pass before the client gives up and returns an empty map.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formguide/pkg/field"
)

const defaultTimeout = 30 * time.Second

// Client talks to the backend over HTTP. The zero value is not usable; use
// NewClient.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises the Client.
type Option func(*Client)

// WithHTTPClient injects a custom *http.Client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAuthToken attaches a bearer token to every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithLogger attaches a logger; the default is a nop.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// AnalyzeFields uploads a detection result for analytics. The response body
// carries nothing the workflow needs, so callers treat failures here as
// non-fatal.
func (c *Client) AnalyzeFields(ctx context.Context, analysis field.PageAnalysis) error {
	body, err := c.post(ctx, "/api/analyze-fields", analysis)
	if err != nil {
		return err
	}
	c.logger.Debug("field analysis uploaded",
		zap.String("url", analysis.URL),
		zap.Int("fields", len(analysis.Fields)),
		zap.Int("responseBytes", len(body)))
	return nil
}

// Projects fetches the caller's project list, newest first, each carrying the
// pre-extracted planset and utility bill text.
func (c *Client) Projects(ctx context.Context) ([]field.Project, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/projects", nil)
	if err != nil {
		return nil, fmt.Errorf("backend: build projects request: %w", err)
	}
	c.decorate(req)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var projects []field.Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("backend: decode projects: %w", err)
	}
	return projects, nil
}

// autoFillRequest matches the backend's /api/auto-fill body.
type autoFillRequest struct {
	Fields  []field.LogicalField `json:"fields"`
	Project field.Project        `json:"project"`
}

// autoFillResponse matches the backend's /api/auto-fill response.
type autoFillResponse struct {
	FieldValues field.ValueMap `json:"fieldValues"`
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
}

// AutoFill asks the AI mapping service for a value map. A malformed body is
// salvaged rather than failed: first the outermost JSON object in the raw
// text, then regex key/value extraction, then an empty map. An empty map is a
// legitimate response; the session's sample-data fallback handles it.
func (c *Client) AutoFill(ctx context.Context, fields []field.LogicalField, project field.Project) (field.ValueMap, error) {
	raw, err := c.post(ctx, "/api/auto-fill", autoFillRequest{Fields: fields, Project: project})
	if err != nil {
		return nil, err
	}

	var resp autoFillResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		values := Salvage(string(raw))
		c.logger.Warn("auto-fill response was not valid JSON, salvaged",
			zap.Int("salvaged", len(values)), zap.Error(err))
		return values, nil
	}
	if !resp.Success {
		c.logger.Warn("auto-fill reported failure", zap.String("message", resp.Message))
	}
	if resp.FieldValues == nil {
		return field.ValueMap{}, nil
	}
	return resp.FieldValues, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("backend: marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s response: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backend: %s returned %d: %s", req.URL.Path, resp.StatusCode, truncate(string(raw), 200))
	}
	return raw, nil
}

func (c *Client) decorate(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	req.Header.Set("Accept", "application/json")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
