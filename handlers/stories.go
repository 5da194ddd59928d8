// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/planning-poker/engine"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
)

type StoryHandler struct {
	engine *engine.Engine
}

func NewStoryHandler(eng *engine.Engine) *StoryHandler {
	return &StoryHandler{engine: eng}
}

// AddStory handles POST /sessions/{id}/stories
func (h *StoryHandler) AddStory(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	var req models.AddStoryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	story, err := h.engine.AddStory(r.Context(), caller, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.StoryResponse{Ack: ok, Story: story})
}

// ListStories handles GET /sessions/{id}/stories
func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	stories, err := h.engine.ListStories(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.StoriesResponse{Ack: ok, Stories: stories})
}

// StartVoting handles POST /stories/{id}/start
func (h *StoryHandler) StartVoting(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	story, err := h.engine.StartVoting(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.StoryResponse{Ack: ok, Story: story})
}

// ResetVoting handles POST /stories/{id}/reset
func (h *StoryHandler) ResetVoting(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	story, err := h.engine.ResetVoting(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.StoryResponse{Ack: ok, Story: story})
}
