// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/engine"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
)

var ok = models.Ack{Success: true}

// statusFor maps engine error kinds to HTTP status codes
func statusFor(kind error) int {
	switch {
	case errors.Is(kind, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, engine.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, engine.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(kind, engine.ErrInvalidValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError turns an engine failure into the failure envelope. Anything
// that is not an *engine.Error is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		middleware.ErrorResponse(w, statusFor(engErr.Kind), engErr.Message)
		return
	}

	requestID := middleware.RequestID(r.Context())
	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("request timed out", "request_id", requestID, "path", r.URL.Path)
		middleware.ErrorResponse(w, http.StatusGatewayTimeout, "Request timed out")
		return
	}

	slog.Error("request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
}

// requireCaller returns the authenticated caller or writes a 401
func requireCaller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	caller, found := auth.CallerFrom(r.Context())
	if !found {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return auth.Caller{}, false
	}
	return caller, true
}

// parseOptionalBody decodes a JSON body when one is present
func parseOptionalBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := middleware.ParseJSONBody(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
