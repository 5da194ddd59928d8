// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/planning-poker/auth"
)

// Authenticate requires a valid bearer token and stores the caller in the
// request context for auth.CallerFrom.
func Authenticate(tokens *auth.Tokens, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			ErrorResponse(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			ErrorResponse(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		caller, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			slog.Debug("rejected bearer token", "request_id", RequestID(r.Context()), "error", err)
			ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
	}
}
