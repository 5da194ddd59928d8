// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/planning-poker/engine"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
)

// ParticipantHandler handles joining, leaving and listing session members
type ParticipantHandler struct {
	engine *engine.Engine
}

func NewParticipantHandler(eng *engine.Engine) *ParticipantHandler {
	return &ParticipantHandler{engine: eng}
}

// Join handles POST /sessions/join
// Accepts either session_id or a 6 character session_code
func (h *ParticipantHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	var req models.JoinSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	session, role, err := h.engine.JoinSession(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.JoinSessionResponse{
		Ack:     ok,
		Session: session,
		Role:    role,
	})
}

// Leave handles POST /sessions/{id}/leave
func (h *ParticipantHandler) Leave(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	if err := h.engine.LeaveSession(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.Ack{Success: true, Message: "Left session"})
}

// List handles GET /sessions/{id}/participants
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	participants, err := h.engine.ListParticipants(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ParticipantsResponse{Ack: ok, Participants: participants})
}
