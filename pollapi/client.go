// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pollapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/vote-x/middleware"
	"github.com/danielhkuo/vote-x/models"
)

// APIError describes a failed call. It unwraps to one of the models
// sentinels (ErrNotFound, ErrNotPermitted, ErrNetworkFailure) and, for
// transport failures, to the underlying error.
type APIError struct {
	Method     string
	Path       string
	StatusCode int // 0 for transport failures
	Message    string
	Kind       error
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Path, e.Kind, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *APIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// kindFor maps a status code onto the error taxonomy
func kindFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrNotPermitted
	}
	return models.ErrNetworkFailure
}

// Client talks to the remote poll service
type Client struct {
	base          *url.URL
	http          *http.Client
	transport     http.RoundTripper
	pageLimit     int
	trailingSlash bool
	now           func() time.Time
}

type Option func(*Client)

// WithTransport sets the innermost RoundTripper (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithPageLimit caps how many pages ListPolls follows.
func WithPageLimit(n int) Option {
	return func(c *Client) { c.pageLimit = n }
}

// WithTrailingSlash appends "/" to every path, for services that require it.
func WithTrailingSlash() Option {
	return func(c *Client) { c.trailingSlash = true }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client for the service at baseURL (which may include a path
// prefix such as "/api"). tokens may be nil for an always-anonymous client.
func New(baseURL string, tokens middleware.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: 15 * time.Second},
		pageLimit: 20,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	mw := []middleware.Tripperware{middleware.WithRequestID, middleware.WithClientLogging}
	if tokens != nil {
		mw = append(mw, middleware.WithBearer(tokens))
	}
	c.http.Transport = middleware.Chain(c.transport, mw...)
	return c, nil
}

func (c *Client) url(elem ...string) string {
	u := c.base.JoinPath(elem...)
	if c.trailingSlash && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Method: method, Path: req.URL.Path, Kind: models.ErrNetworkFailure, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
			Kind:       kindFor(resp.StatusCode),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			Method:     method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    "invalid JSON response",
			Kind:       models.ErrNetworkFailure,
			Cause:      err,
		}
	}
	return nil
}

func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var e models.ErrorResponse
	if json.Unmarshal(raw, &e) == nil {
		for _, m := range []string{e.Detail, e.Message, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
