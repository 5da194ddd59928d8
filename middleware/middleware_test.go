// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/models"
)

func TestWithLogging(t *testing.T) {
	var seenID string
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	})

	req := httptest.NewRequest("POST", "/sessions", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if w.Body.String() != "created" {
		t.Errorf("Expected body 'created', got '%s'", w.Body.String())
	}
	if seenID == "" {
		t.Fatal("Expected request id in context")
	}
	if got := w.Header().Get(RequestIDHeader); got != seenID {
		t.Errorf("X-Request-ID = %q, want %q", got, seenID)
	}
}

func TestWithLogging_KeepsIncomingRequestID(t *testing.T) {
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "upstream-123")
	w := httptest.NewRecorder()
	handler(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "upstream-123" {
		t.Errorf("X-Request-ID = %q, want upstream-123", got)
	}
}

func TestWithLogging_RecoversPanic(t *testing.T) {
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/sessions/x", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	var resp models.Ack
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Success || resp.Message != "Internal error" {
		t.Errorf("Unexpected envelope: %+v", resp)
	}
}

func TestWithTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := WithTimeout(time.Second, func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	})

	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !ok {
		t.Fatal("Expected a deadline on the request context")
	}
	if time.Until(deadline) > time.Second {
		t.Errorf("Deadline %v is further out than the timeout", deadline)
	}

	// Zero disables the timeout
	WithTimeout(0, func(w http.ResponseWriter, r *http.Request) {
		_, ok = r.Context().Deadline()
	})(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if ok {
		t.Error("Expected no deadline with a zero timeout")
	}
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{
			name:       "success envelope",
			statusCode: http.StatusOK,
			data:       models.SessionResponse{Ack: models.Ack{Success: true}, Session: models.Session{ID: "s1"}},
			expected:   `"success":true`,
		},
		{
			name:       "embedded payload is flattened",
			statusCode: http.StatusOK,
			data:       models.VotesResponse{Ack: models.Ack{Success: true}, VoteView: models.VoteView{StoryID: "st1"}},
			expected:   `"story_id":"st1"`,
		},
		{
			name:       "array data",
			statusCode: http.StatusOK,
			data:       []string{"a", "b"},
			expected:   `["a","b"]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
			}
			if body := w.Body.String(); !strings.Contains(body, tc.expected) {
				t.Errorf("Expected body to contain '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		statusCode int
		message    string
	}{
		{http.StatusBadRequest, "title is required"},
		{http.StatusUnauthorized, "Invalid or expired token"},
		{http.StatusForbidden, "Only the facilitator can do this"},
		{http.StatusConflict, "Story is not open for voting"},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.statusCode), func(t *testing.T) {
			w := httptest.NewRecorder()

			ErrorResponse(w, tc.statusCode, tc.message)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}

			var resp map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp["success"] != false {
				t.Errorf("Expected success=false, got %v", resp["success"])
			}
			if resp["message"] != tc.message {
				t.Errorf("Expected message '%s', got '%v'", tc.message, resp["message"])
			}
		})
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"Login","extra":1}`))

		var parsed models.AddStoryRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.Title != "Login" {
			t.Errorf("Expected title 'Login', got '%s'", parsed.Title)
		}
	})

	for _, body := range []string{`{invalid json}`, ``} {
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))
		var parsed models.AddStoryRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Errorf("Expected error for body %q", body)
		}
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("handled"))
	})
	corsHandler := CORS(next)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/sessions", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.String() != "" {
			t.Errorf("Preflight = %d %q, want 200 with empty body", w.Code, w.Body.String())
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
			t.Error("Expected Authorization in allowed headers")
		}
		for _, m := range []string{"GET", "POST", "DELETE"} {
			if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), m) {
				t.Errorf("Expected %s in allowed methods", m)
			}
		}
	})

	t.Run("request without origin defaults to wildcard", func(t *testing.T) {
		w := httptest.NewRecorder()
		corsHandler.ServeHTTP(w, httptest.NewRequest("GET", "/sessions", nil))

		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected Access-Control-Allow-Origin to default to '*'")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{"X-Forwarded-For chain", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:1", "203.0.113.195"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "203.0.113.50"}, "10.0.0.1:1", "203.0.113.50"},
		{"RemoteAddr with port", nil, "192.168.1.50:54321", "192.168.1.50"},
		{"RemoteAddr without port", nil, "192.168.1.50", "192.168.1.50"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if ip := GetClientIP(req); ip != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, ip)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokens("secret")
	valid, err := tokens.Issue("alice", "Alice", auth.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	expired, _ := tokens.Issue("alice", "Alice", "", -time.Minute)
	foreign, _ := auth.NewTokens("other").Issue("alice", "Alice", "", time.Hour)

	var got auth.Caller
	handler := Authenticate(tokens, func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CallerFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	testCases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"no scheme", valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got = auth.Caller{}
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, w.Code)
			}
			if tc.wantStatus == http.StatusOK && (got.UserID != "alice" || !got.Admin) {
				t.Errorf("Caller = %+v, want admin alice", got)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Close()

	handler := rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(userID string) int {
		req := httptest.NewRequest("POST", "/stories/x/votes", nil)
		if userID != "" {
			req = req.WithContext(auth.WithCaller(context.Background(), auth.Caller{UserID: userID}))
		}
		w := httptest.NewRecorder()
		handler(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("alice"); code != http.StatusOK {
			t.Fatalf("Request %d within burst got %d", i, code)
		}
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after burst, got %d", code)
	}

	// Budgets are per caller
	if code := send("bob"); code != http.StatusOK {
		t.Errorf("Expected bob to have a separate budget, got %d", code)
	}

	// Anonymous requests are keyed by client IP
	if code := send(""); code != http.StatusOK {
		t.Errorf("Expected anonymous request to pass, got %d", code)
	}

	rl.Close()
	rl.Close()
}
