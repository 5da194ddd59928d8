// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/planning-poker/engine"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
)

type VotingHandler struct {
	engine *engine.Engine
}

func NewVotingHandler(eng *engine.Engine) *VotingHandler {
	return &VotingHandler{engine: eng}
}

// SubmitVote handles POST /stories/{id}/votes
// Resubmitting replaces the caller's earlier ballot
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	vote, err := h.engine.SubmitVote(r.Context(), caller, r.PathValue("id"), req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SubmitVoteResponse{Ack: ok, Vote: vote})
}

// GetVotes handles GET /stories/{id}/votes
// Values of other voters stay hidden until the story is revealed
func (h *VotingHandler) GetVotes(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	view, err := h.engine.GetVotes(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VotesResponse{Ack: ok, VoteView: view})
}

// RevealVotes handles POST /stories/{id}/reveal
func (h *VotingHandler) RevealVotes(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	result, err := h.engine.RevealVotes(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RevealResponse{Ack: ok, RevealResult: result})
}
