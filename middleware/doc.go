// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware for talking to the poll service.

# Client Transport

Outgoing requests go through a chain of round-trippers:

	rt := middleware.Chain(http.DefaultTransport,
		middleware.WithRequestID,
		middleware.WithClientLogging,
		middleware.WithBearer(tokens),
	)

  - WithRequestID: sets X-Request-ID to a random UUID
  - WithClientLogging: logs method, path, status, duration_ms, request_id
  - WithBearer: adds "Authorization: Bearer <access>" when a token is stored

Round-trippers never modify the caller's request; they clone it first.

# Handler Helpers

Used by the fake poll service in package testutil:

	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(h.GetPoll))
	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	middleware.DetailResponse(w, http.StatusUnauthorized, "Token is invalid or expired")
	token := middleware.BearerToken(r)
*/
package middleware
