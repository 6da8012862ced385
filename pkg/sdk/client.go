package qtext

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client is the qtext SDK entry point.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
	obs     *observer
}

// New creates a Client for the API at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("qtext: invalid base url %q", baseURL)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		apiKey:  cfg.apiKey,
		obs:     obs,
	}, nil
}

// AddNamespace creates a namespace with its indexes.
func (c *Client) AddNamespace(ctx context.Context, ns Namespace) (err error) {
	call := c.obs.begin("add_namespace", ns.Name)
	defer func() { call.end(err) }()

	return c.post(ctx, "/api/namespace", ns, nil)
}

// AddDoc inserts a document into namespace. Missing vectors are computed
// server-side from the text.
func (c *Client) AddDoc(ctx context.Context, namespace string, doc Document) (err error) {
	call := c.obs.begin("add_doc", namespace)
	defer func() { call.end(err) }()

	body := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		body[k] = v
	}
	body["namespace"] = namespace
	return c.post(ctx, "/api/doc", body, nil)
}

// Query returns the ranked documents.
func (c *Client) Query(ctx context.Context, q Query) (docs []Document, err error) {
	call := c.obs.begin("query", q.Namespace)
	defer func() { call.end(err) }()

	if err = c.post(ctx, "/api/query", q, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// QueryExplain returns per-modality candidates, timings and provenance.
func (c *Client) QueryExplain(ctx context.Context, q Query) (res ExplainResult, err error) {
	call := c.obs.begin("query_explain", q.Namespace)
	defer func() { call.end(err) }()

	if err = c.post(ctx, "/api/query_explain", q, &res); err != nil {
		return ExplainResult{}, err
	}
	return res, nil
}

// Highlight returns one highlighted string per doc.
func (c *Client) Highlight(ctx context.Context, req HighlightRequest) (out []string, err error) {
	call := c.obs.begin("highlight", "")
	defer func() { call.end(err) }()

	var resp struct {
		Highlighted []string `json:"highlighted"`
	}
	if err = c.post(ctx, "/api/highlight", req, &resp); err != nil {
		return nil, err
	}
	return resp.Highlighted, nil
}

// Health checks the health of all server components. An unhealthy server
// still yields a status; err is set only when no report could be read.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("qtext: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("qtext: health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("qtext: decode health: %w", err)
	}
	return hs, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("qtext: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("qtext: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("qtext: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qtext: decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return errors.Join(apiErr, err)
	}
	if json.Unmarshal(data, apiErr) != nil {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
