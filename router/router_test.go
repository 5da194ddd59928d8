// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/directory"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/testutil"
)

func setupRouter(t *testing.T, cfg cliparse.Config) (*sql.DB, *http.ServeMux) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { db.Close() })

	groups, err := directory.Parse([]byte("groups:\n  - id: qa\n    name: QA\n    members: [quinn]\n"))
	if err != nil {
		t.Fatalf("Failed to parse groups: %v", err)
	}

	limiter := middleware.NewRateLimiter(cfg.VoteRateLimit, cfg.VoteRateBurst)
	t.Cleanup(limiter.Close)

	return db, NewRouter(db, cfg, groups, limiter)
}

func TestHealthEndpoint(t *testing.T) {
	_, mux := setupRouter(t, testutil.GetTestConfig())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	_, mux := setupRouter(t, testutil.GetTestConfig())

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "planning-poker API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRoutesRequireToken(t *testing.T) {
	_, mux := setupRouter(t, testutil.GetTestConfig())

	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/me"},
		{"GET", "/scoring-methods"},
		{"GET", "/scoring-methods/fibonacci"},
		{"GET", "/groups"},
		{"GET", "/sessions"},
		{"POST", "/sessions"},
		{"POST", "/sessions/join"},
		{"GET", "/sessions/test-id"},
		{"DELETE", "/sessions/test-id"},
		{"POST", "/sessions/test-id/start"},
		{"POST", "/sessions/test-id/complete"},
		{"POST", "/sessions/test-id/leave"},
		{"GET", "/sessions/test-id/participants"},
		{"GET", "/sessions/test-id/stories"},
		{"POST", "/sessions/test-id/stories"},
		{"POST", "/sessions/test-id/next-story"},
		{"POST", "/stories/test-id/start"},
		{"POST", "/stories/test-id/votes"},
		{"GET", "/stories/test-id/votes"},
		{"POST", "/stories/test-id/reveal"},
		{"POST", "/stories/test-id/reset"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			// A 401 proves the route matched and auth ran
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("Expected request ID header")
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, mux := setupRouter(t, testutil.GetTestConfig())

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},                  // Only GET is defined
		{"PUT", "/sessions/test-id"},         // GET and DELETE are defined
		{"DELETE", "/stories/test-id/votes"}, // GET and POST are defined
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestAuthenticatedFlow(t *testing.T) {
	db, mux := setupRouter(t, testutil.GetTestConfig())

	sessionID, code := testutil.CreateTestSession(t, db, "fay", models.SessionInSession)
	storyID := testutil.AddTestStory(t, db, sessionID, 1, models.StoryVoting)

	// Join by code
	req := testutil.MakeRequest("POST", "/sessions/join", models.JoinSessionRequest{SessionCode: code},
		testutil.AuthHeader(t, "vic"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	// Path value reaches the handler
	req = testutil.MakeRequest("POST", "/stories/"+storyID+"/votes", models.SubmitVoteRequest{Value: "8"},
		testutil.AuthHeader(t, "vic"))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var vote models.SubmitVoteResponse
	testutil.AssertJSON(t, rec, &vote)
	if vote.Vote.StoryID != storyID {
		t.Errorf("Expected story %s, got %s", storyID, vote.Vote.StoryID)
	}

	// Admin token may delete a session it does not facilitate
	draftID, _ := testutil.CreateTestSession(t, db, "fay", models.SessionDraft)
	req = testutil.MakeRequest("DELETE", "/sessions/"+draftID, nil,
		map[string]string{"Authorization": "Bearer " + testutil.Token(t, "root", "Root", true)})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)
}

func TestVoteRateLimit(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.VoteRateLimit = 0.001
	cfg.VoteRateBurst = 2
	db, mux := setupRouter(t, cfg)

	sessionID, _ := testutil.CreateTestSession(t, db, "fay", models.SessionInSession)
	storyID := testutil.AddTestStory(t, db, sessionID, 1, models.StoryVoting)
	testutil.AddTestParticipant(t, db, sessionID, "vic", models.RoleVoter)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := testutil.MakeRequest("POST", "/stories/"+storyID+"/votes", models.SubmitVoteRequest{Value: "3"},
			testutil.AuthHeader(t, "vic"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("Expected first two votes to pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third vote to be limited, got %d", statuses[2])
	}

	// Reads are not limited
	req := testutil.MakeRequest("GET", "/stories/"+storyID+"/votes", nil, testutil.AuthHeader(t, "vic"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)
}
