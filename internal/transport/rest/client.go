// Package rest implements the HTTP transport for the Strata REST API.
package rest

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

	"go.uber.org/zap"

	"github.com/kailas-cloud/strata-go/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Config holds transport settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Headers    map[string]string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a thin JSON-over-HTTP client for the Strata server.
type Client struct {
	baseURL string
	apiKey  string
	headers map[string]string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a transport client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transport: base URL required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("transport: invalid base URL %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		headers: cfg.Headers,
		http:    hc,
		logger:  logger,
	}, nil
}

// Do performs one JSON request. A nil body sends no payload; a nil out
// discards the response body. Non-2xx responses are mapped onto the domain
// error taxonomy; network failures wrap domain.ErrUnavailable.
func (c *Client) Do(
	ctx context.Context, method, path string, query url.Values, body, out any,
) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		return fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrUnavailable)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %w",
			method, path, domain.NewStatusError(resp.StatusCode, readServerError(resp.Body)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Exists performs a HEAD-style existence probe via GET, translating 404 into
// a false result instead of an error.
func (c *Client) Exists(ctx context.Context, path string, query url.Values) (bool, error) {
	err := c.Do(ctx, http.MethodGet, path, query, nil, nil)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// serverError mirrors the Strata error envelope: {"error":[{"message":"..."}]}.
type serverError struct {
	Error []struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func readServerError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var parsed serverError
	if json.Unmarshal(raw, &parsed) == nil {
		if len(parsed.Error) > 0 && parsed.Error[0].Message != "" {
			return parsed.Error[0].Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
