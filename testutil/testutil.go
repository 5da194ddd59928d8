// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/db"
)

// TestDBURL is an in-memory SQLite database; each SetupTestDB call gets its own
const TestDBURL = "file::memory:"

// TestJWTSecret signs tokens issued by Token
const TestJWTSecret = "test-jwt-secret"

// SetupTestDB creates a fresh test database with the full schema and the
// default scoring methods
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open("sqlite", TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	if _, err := db.SeedScoringMethods(context.Background(), conn, db.DefaultScoringMethods()); err != nil {
		t.Fatalf("Failed to seed scoring methods: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    TestDBURL,
		DatabaseType:   "sqlite",
		JWTSecret:      TestJWTSecret,
		RequestTimeout: 5 * time.Second,
		VoteRateLimit:  1000,
		VoteRateBurst:  1000,
	}
}

// Token issues a bearer token for a test user
func Token(t *testing.T, userID, name string, admin bool) string {
	t.Helper()

	role := ""
	if admin {
		role = auth.RoleAdmin
	}
	token, err := auth.NewTokens(TestJWTSecret).Issue(userID, name, role, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

// AuthHeader returns the Authorization header for a test user
func AuthHeader(t *testing.T, userID string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + Token(t, userID, userID, false)}
}

// CreateTestSession creates a session facilitated by facilitatorID on the
// fibonacci method and returns its ID and code.
// state should be "draft", "in_session", or "complete"
func CreateTestSession(t *testing.T, conn *sql.DB, facilitatorID, state string) (sessionID, code string) {
	t.Helper()

	sessionID, _ = auth.GenerateID(16)
	code, _ = auth.GenerateSessionCode()

	var startedAt, completedAt *time.Time
	now := time.Now()
	if state == "in_session" || state == "complete" {
		startedAt = &now
	}
	if state == "complete" {
		completedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO planning_session (id, title, description, facilitator_id, facilitator_name,
		                              scoring_method_id, code, state, created_at, started_at, completed_at)
		VALUES ($1, 'Test Session', 'A test session', $2, $2, 'fibonacci', $3, $4, $5, $6, $7)
	`, sessionID, facilitatorID, code, state, now, startedAt, completedAt)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return sessionID, code
}

// AddTestStory adds a story at the given position and returns its ID.
// state should be "pending", "voting", or "completed"
func AddTestStory(t *testing.T, conn *sql.DB, sessionID string, position int, state string) string {
	t.Helper()

	storyID, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO story (id, session_id, sort_order, title, description, state)
		VALUES ($1, $2, $3, 'Test Story', '', $4)
	`, storyID, sessionID, position, state)
	if err != nil {
		t.Fatalf("Failed to create test story: %v", err)
	}

	return storyID
}

// AddTestParticipant adds an active participant with the given role
func AddTestParticipant(t *testing.T, conn *sql.DB, sessionID, userID, role string) string {
	t.Helper()

	participantID, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO participant (id, session_id, user_id, user_name, role, active, joined_at)
		VALUES ($1, $2, $3, $3, $4, $5, $6)
	`, participantID, sessionID, userID, role, true, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test participant: %v", err)
	}

	return participantID
}

// SubmitTestVote writes a ballot directly, bypassing state checks
func SubmitTestVote(t *testing.T, conn *sql.DB, sessionID, storyID, voterID, value string) {
	t.Helper()

	voteID, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO vote (id, session_id, story_id, voter_id, voter_name, value, updated_at)
		VALUES ($1, $2, $3, $4, $4, $5, $6)
	`, voteID, sessionID, storyID, voterID, value, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
}

// CountRows runs a COUNT(*) query and returns the result
func CountRows(t *testing.T, conn *sql.DB, query string, args ...interface{}) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
