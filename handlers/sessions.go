// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/danielhkuo/planning-poker/engine"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
)

type SessionHandler struct {
	engine *engine.Engine
}

func NewSessionHandler(eng *engine.Engine) *SessionHandler {
	return &SessionHandler{engine: eng}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	session, err := h.engine.CreateSession(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		Ack:     ok,
		Session: session,
		Code:    session.Code,
	})
}

// ListSessions handles GET /sessions?mine=true
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	mine := false
	if v := r.URL.Query().Get("mine"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "mine must be true or false")
			return
		}
		mine = parsed
	}

	sessions, err := h.engine.ListSessions(r.Context(), caller, mine)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionListResponse{Ack: ok, Sessions: sessions})
}

// GetSession handles GET /sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	data, err := h.engine.GetSessionData(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionDataResponse{Ack: ok, SessionData: data})
}

// StartSession handles POST /sessions/{id}/start
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	session, err := h.engine.StartSession(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{Ack: ok, Session: session})
}

// CompleteSession handles POST /sessions/{id}/complete. The body is
// optional; {"force": true} completes with unfinished stories.
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	var req models.CompleteSessionRequest
	if err := parseOptionalBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	session, err := h.engine.CompleteSession(r.Context(), caller, r.PathValue("id"), req.Force)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{Ack: ok, Session: session})
}

// DeleteSession handles DELETE /sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	if err := h.engine.DeleteSession(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.Ack{Success: true, Message: "Session deleted"})
}

// NextStory handles POST /sessions/{id}/next-story
func (h *SessionHandler) NextStory(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	story, err := h.engine.NextStory(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := models.NextStoryResponse{Ack: ok, Story: story}
	if story == nil {
		resp.Status = models.NoMoreStories
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}
