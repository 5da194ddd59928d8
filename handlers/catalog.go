// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/scoring"
)

// GroupLister lists the groups sessions can invite
type GroupLister interface {
	List(ctx context.Context) ([]models.Group, error)
}

// CatalogHandler serves read-only reference data: scoring methods, groups
// and the caller's own identity.
type CatalogHandler struct {
	methods *scoring.Registry
	groups  GroupLister
}

func NewCatalogHandler(methods *scoring.Registry, groups GroupLister) *CatalogHandler {
	return &CatalogHandler{methods: methods, groups: groups}
}

// Whoami handles GET /me
func (h *CatalogHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	caller, found := requireCaller(w, r)
	if !found {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.WhoamiResponse{
		Ack:  ok,
		User: models.User{ID: caller.UserID, Name: caller.Name, Admin: caller.Admin},
	})
}

// ListScoringMethods handles GET /scoring-methods
func (h *CatalogHandler) ListScoringMethods(w http.ResponseWriter, r *http.Request) {
	if _, found := requireCaller(w, r); !found {
		return
	}

	methods, err := h.methods.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ScoringMethodsResponse{Ack: ok, Methods: methods})
}

// GetScoringMethod handles GET /scoring-methods/{id}
func (h *CatalogHandler) GetScoringMethod(w http.ResponseWriter, r *http.Request) {
	if _, found := requireCaller(w, r); !found {
		return
	}

	method, err := h.methods.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, scoring.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Scoring method not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ScoringMethodResponse{Ack: ok, Method: method})
}

// ListGroups handles GET /groups
func (h *CatalogHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	if _, found := requireCaller(w, r); !found {
		return
	}

	groups, err := h.groups.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GroupsResponse{Ack: ok, Groups: groups})
}
