// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/directory"
	"github.com/danielhkuo/planning-poker/engine"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/scoring"
	"github.com/danielhkuo/planning-poker/testutil"
)

type testEnv struct {
	db           *sql.DB
	sessions     *SessionHandler
	participants *ParticipantHandler
	stories      *StoryHandler
	voting       *VotingHandler
	catalog      *CatalogHandler
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { db.Close() })

	groups, err := directory.Parse([]byte("groups:\n  - id: web\n    name: Web Team\n    members: [wendy, will]\n"))
	if err != nil {
		t.Fatalf("Failed to parse groups: %v", err)
	}

	registry := scoring.NewRegistry(db, time.Minute)
	eng := engine.New(db, registry, groups)

	return &testEnv{
		db:           db,
		sessions:     NewSessionHandler(eng),
		participants: NewParticipantHandler(eng),
		stories:      NewStoryHandler(eng),
		voting:       NewVotingHandler(eng),
		catalog:      NewCatalogHandler(registry, groups),
	}
}

// asUser attaches an authenticated caller to the request
func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithCaller(req.Context(), auth.Caller{UserID: userID, Name: userID}))
}

func asAdmin(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithCaller(req.Context(), auth.Caller{UserID: userID, Name: userID, Admin: true}))
}

// call runs a handler with an optional path id as the given user
func call(h http.HandlerFunc, method, path, id, userID string, body interface{}) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, nil)
	if id != "" {
		req.SetPathValue("id", id)
	}
	if userID != "" {
		req = asUser(req, userID)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"not found", &engine.Error{Kind: engine.ErrNotFound, Message: "Session not found"}, http.StatusNotFound, "Session not found"},
		{"forbidden", &engine.Error{Kind: engine.ErrForbidden, Message: "nope"}, http.StatusForbidden, "nope"},
		{"invalid state", &engine.Error{Kind: engine.ErrInvalidState, Message: "closed"}, http.StatusConflict, "closed"},
		{"invalid value", &engine.Error{Kind: engine.ErrInvalidValue, Message: "bad"}, http.StatusBadRequest, "bad"},
		{"wrapped engine error", fmt.Errorf("outer: %w", &engine.Error{Kind: engine.ErrNotFound, Message: "gone"}), http.StatusNotFound, "gone"},
		{"timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "Request timed out"},
		{"internal details hidden", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "Internal error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest("GET", "/", nil), tc.err)

			testutil.AssertStatus(t, w, tc.wantStatus)

			var resp models.Ack
			testutil.AssertJSON(t, w, &resp)
			if resp.Success {
				t.Error("Expected success=false")
			}
			if resp.Message != tc.wantMessage {
				t.Errorf("Expected message %q, got %q", tc.wantMessage, resp.Message)
			}
		})
	}
}

func TestHandlersRequireCaller(t *testing.T) {
	env := setupHandlers(t)

	handlers := map[string]http.HandlerFunc{
		"CreateSession": env.sessions.CreateSession,
		"ListSessions":  env.sessions.ListSessions,
		"Join":          env.participants.Join,
		"AddStory":      env.stories.AddStory,
		"SubmitVote":    env.voting.SubmitVote,
		"Whoami":        env.catalog.Whoami,
		"ListGroups":    env.catalog.ListGroups,
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			w := call(h, "POST", "/", "x", "", map[string]string{})
			testutil.AssertStatus(t, w, http.StatusUnauthorized)
		})
	}
}
