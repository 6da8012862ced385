// Package inference is the HTTP plumbing shared by the model-serving
// collaborators (sparse embedding, cross-encoder, Cohere, highlight).
package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/metrics"
	"github.com/kailas-cloud/qtext/internal/resilience"
)

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

// Executor runs a call under retry and circuit breaking.
type Executor interface {
	Execute(ctx context.Context, operation string, fn func(context.Context) error, classifier resilience.ErrorClassifier) error
}

// Config configures one collaborator endpoint.
type Config struct {
	// Name labels metrics, logs and errors ("sparse", "cohere", ...).
	Name    string
	BaseURL string
	Timeout time.Duration
	// Header is sent with every request (e.g. Authorization).
	Header     http.Header
	HTTPClient *http.Client
	Executor   Executor
	Logger     *zap.Logger
}

// Client posts payloads to a collaborator and returns raw response bodies.
type Client struct {
	name    string
	baseURL string
	header  http.Header
	http    *http.Client
	exec    Executor
	logger  *zap.Logger
}

// New creates a client. Timeout applies when HTTPClient is not given.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		header:  cfg.Header,
		http:    hc,
		exec:    cfg.Executor,
		logger:  logger,
	}
}

// Name returns the collaborator name.
func (c *Client) Name() string { return c.name }

// Post sends body to path and returns the response body of a 2xx reply.
// Non-2xx replies and transport failures become *domain.CollaboratorError.
func (c *Client) Post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	var out []byte
	call := func(ctx context.Context) error {
		resp, err := c.post(ctx, path, contentType, body)
		if err != nil {
			return err
		}
		out = resp
		return nil
	}

	start := time.Now()
	var err error
	if c.exec != nil {
		err = c.exec.Execute(ctx, c.name, call, nil)
	} else {
		err = call(ctx)
	}
	metrics.CollaboratorDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues(c.name).Inc()
		c.logger.Warn("collaborator request failed",
			zap.String("collaborator", c.name),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, err //nolint:wrapcheck // CollaboratorError carries the service
	}
	c.logger.Debug("collaborator request",
		zap.String("collaborator", c.name),
		zap.String("path", path),
		zap.Int("response_bytes", len(out)),
		zap.Duration("latency", time.Since(start)),
	)
	return out, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", c.name, ctx.Err())
		}
		return nil, &domain.CollaboratorError{Service: c.name, Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.CollaboratorError{Service: c.name, Detail: "read body: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(data))
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
		return nil, &domain.CollaboratorError{Service: c.name, StatusCode: resp.StatusCode, Detail: detail}
	}
	return data, nil
}

// Decode turns a decoding failure into a collaborator error.
func (c *Client) Decode(err error) error {
	return &domain.CollaboratorError{Service: c.name, Detail: "decode response: " + err.Error()}
}
