// Package api is the HTTP client of the external analytics backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"datapilot/domain/analysis"
	"datapilot/domain/core"
	"datapilot/internal/errors"

	"github.com/tidwall/gjson"
)

const serviceName = "analytics"

type tokenKey struct{}

// WithToken attaches the session's bearer token to ctx
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token attached to ctx, if any
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client implements ports.AnalyticsBackend over HTTP. Each call is a single
// attempt; cancellation comes from the caller's context.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	staticToken string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStaticToken sets a token used when the context carries none
func WithStaticToken(token string) Option {
	return func(c *Client) { c.staticToken = token }
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload posts the file as multipart field "file" to /upload/{role}
func (c *Client) Upload(ctx context.Context, role core.RoleID, file analysis.Upload) (*analysis.Dataset, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upload form")
	}
	if file.Body != nil {
		if _, err := io.Copy(part, file.Body); err != nil {
			return nil, errors.Wrap(err, "failed to read upload")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to build upload form")
	}

	resp, err := c.do(ctx, http.MethodPost, c.path("upload", string(role)), &body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return parseDataset(resp)
}

// Clean posts {operation, data} to /clean/{role}
func (c *Client) Clean(ctx context.Context, role core.RoleID, operation string, rows []analysis.Row) ([]analysis.Row, error) {
	if rows == nil {
		rows = []analysis.Row{}
	}
	resp, err := c.postJSON(ctx, c.path("clean", string(role)), map[string]interface{}{
		"operation": operation,
		"data":      rows,
	})
	if err != nil {
		return nil, err
	}
	rowsResult := firstOf(resp, "cleaned", "data", "rows", "preview")
	if !rowsResult.Exists() && gjson.ParseBytes(resp).IsArray() {
		rowsResult = gjson.ParseBytes(resp)
	}
	return decodeRows(rowsResult)
}

// Analyze posts the task payload to /analyze/{role}/{task}
func (c *Client) Analyze(ctx context.Context, role core.RoleID, task core.TaskID, payload analysis.TaskPayload) (*analysis.Chart, error) {
	resp, err := c.postJSON(ctx, c.path("analyze", string(role), string(task)), payload)
	if err != nil {
		return nil, err
	}

	node := gjson.ParseBytes(resp)
	if inner := firstOf(resp, "chart", "data"); inner.IsObject() {
		node = inner
	}
	if !node.IsObject() {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("analyze %s returned no chart object", task))
	}

	var chart analysis.Chart
	if err := json.Unmarshal([]byte(node.Raw), &chart); err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to decode chart: %w", err))
	}
	return &chart, nil
}

// Insight posts {question} to /ai-insight/{role}
func (c *Client) Insight(ctx context.Context, role core.RoleID, question string) (string, error) {
	resp, err := c.postJSON(ctx, c.path("ai-insight", string(role)), map[string]string{"question": question})
	if err != nil {
		return "", err
	}
	answer := firstOf(resp, "response", "insight", "answer", "data.response")
	if answer.Type != gjson.String {
		return "", errors.ExternalServiceError(serviceName, fmt.Errorf("insight response has no text"))
	}
	return answer.String(), nil
}

// Report fetches /report/{role}?format=
func (c *Client) Report(ctx context.Context, role core.RoleID, format string) ([]byte, error) {
	u := c.path("report", string(role))
	if format != "" {
		u += "?" + url.Values{"format": {format}}.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, "")
}

// ChartExport fetches /download-chart/{chartId}
func (c *Client) ChartExport(ctx context.Context, chartID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.path("download-chart", chartID), nil, "")
}

// Preview fetches /preview/{role}
func (c *Client) Preview(ctx context.Context, role core.RoleID) (*analysis.Dataset, error) {
	resp, err := c.do(ctx, http.MethodGet, c.path("preview", string(role)), nil, "")
	if err != nil {
		return nil, err
	}
	return parseDataset(resp)
}

func (c *Client) path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) postJSON(ctx context.Context, u string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}
	return c.do(ctx, http.MethodPost, u, bytes.NewReader(body), "application/json")
}

// do sends one request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	token := TokenFrom(ctx)
	if token == "" {
		token = c.staticToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("%s %s: %w", method, req.URL.Path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to read response: %w", err))
	}
	log.Printf("[APIClient] %s %s -> %d (%dms)", method, req.URL.Path, resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ExternalServiceError(serviceName, &StatusError{Status: resp.StatusCode, Body: snippet(data)})
	}
	return data, nil
}

// StatusError is a non-2xx backend response
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// firstOf returns the first path present in body
func firstOf(body []byte, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// parseDataset accepts {dataset_id, columns, preview|rows|data} either bare
// or wrapped in {"data": {...}}
func parseDataset(body []byte) (*analysis.Dataset, error) {
	if inner := gjson.GetBytes(body, "data"); inner.IsObject() {
		body = []byte(inner.Raw)
	}

	rowsResult := firstOf(body, "preview", "rows", "data")
	rows, err := decodeRows(rowsResult)
	if err != nil {
		return nil, err
	}

	ds := &analysis.Dataset{
		ID:       core.DatasetID(gjson.GetBytes(body, "dataset_id").String()),
		Rows:     rows,
		RowCount: int(gjson.GetBytes(body, "row_count").Int()),
	}
	if cols := gjson.GetBytes(body, "columns"); cols.IsArray() {
		for _, col := range cols.Array() {
			ds.Columns = append(ds.Columns, col.String())
		}
	} else if first := rowsResult.Get("0"); first.IsObject() {
		// Keep the backend's key order rather than map order
		first.ForEach(func(key, _ gjson.Result) bool {
			ds.Columns = append(ds.Columns, key.String())
			return true
		})
	}
	if ds.RowCount == 0 {
		ds.RowCount = len(rows)
	}
	return ds, nil
}

func decodeRows(r gjson.Result) ([]analysis.Row, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return []analysis.Row{}, nil
	}
	if !r.IsArray() {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("expected an array of rows"))
	}
	var rows []analysis.Row
	if err := json.Unmarshal([]byte(r.Raw), &rows); err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to decode rows: %w", err))
	}
	return rows, nil
}
