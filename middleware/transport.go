// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Tripperware wraps a RoundTripper.
type Tripperware func(http.RoundTripper) http.RoundTripper

// Chain wraps base so that the first Tripperware is the outermost.
func Chain(base http.RoundTripper, mw ...Tripperware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mw) - 1; i >= 0; i-- {
		base = mw[i](base)
	}
	return base
}

// TokenSource supplies the current access token; "" means anonymous.
type TokenSource interface {
	AccessToken() (string, error)
}

// WithBearer attaches "Authorization: Bearer <token>" when a token is present.
// A failing token source is logged and the request goes out anonymously.
func WithBearer(tokens TokenSource) Tripperware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			token, err := tokens.AccessToken()
			if err != nil {
				slog.Warn("failed to read access token", "error", err)
			}
			if token == "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(r)
		})
	}
}

// WithRequestID tags each request with a fresh X-Request-ID unless the caller
// already set one.
func WithRequestID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(RequestIDHeader) != "" {
			return next.RoundTrip(r)
		}
		r = r.Clone(r.Context())
		r.Header.Set(RequestIDHeader, uuid.NewString())
		return next.RoundTrip(r)
	})
}

// WithClientLogging logs every outgoing request and its outcome.
func WithClientLogging(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get(RequestIDHeader),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			slog.Warn("request failed", append(attrs, "error", err)...)
			return nil, err
		}
		slog.Debug("request completed", append(attrs, "status", resp.StatusCode)...)
		return resp, nil
	})
}
