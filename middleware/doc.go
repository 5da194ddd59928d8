// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Each request gets an id (an incoming X-Request-ID is kept, otherwise a
UUID), echoed in the X-Request-ID response header and attached to the
start and completion log lines. Panics are recovered into a 500 failure
envelope.

# Authentication

	middleware.Authenticate(tokens, handler)

Requires "Authorization: Bearer <token>" and stores the caller for
auth.CallerFrom. Missing or invalid tokens get 401.

# Timeouts and Rate Limiting

	middleware.WithTimeout(cfg.RequestTimeout, handler)

	limiter := middleware.NewRateLimiter(cfg.VoteRateLimit, cfg.VoteRateBurst)
	defer limiter.Close()
	limiter.Limit(handler)

Limits are kept per authenticated user, or per client IP without one.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{...})
	middleware.ErrorResponse(w, http.StatusConflict, "Story is not open for voting")

ErrorResponse writes {"success": false, "message": "..."}.
*/
package middleware
