// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/directory"
	"github.com/danielhkuo/planning-poker/engine"
	"github.com/danielhkuo/planning-poker/handlers"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/scoring"
)

// scoringCacheTTL bounds how stale the scoring method cache can be
const scoringCacheTTL = 5 * time.Minute

// NewRouter wires the engine and handlers into a mux. The limiter throttles
// ballot submission; the caller owns it and closes it on shutdown.
func NewRouter(db *sql.DB, cfg cliparse.Config, groups *directory.Static, limiter *middleware.RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	registry := scoring.NewRegistry(db, scoringCacheTTL)
	eng := engine.New(db, registry, groups)
	tokens := auth.NewTokens(cfg.JWTSecret)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(eng)
	participantHandler := handlers.NewParticipantHandler(eng)
	storyHandler := handlers.NewStoryHandler(eng)
	votingHandler := handlers.NewVotingHandler(eng)
	catalogHandler := handlers.NewCatalogHandler(registry, groups)

	// authed runs h with logging, the request deadline and a verified caller
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.WithTimeout(cfg.RequestTimeout, middleware.Authenticate(tokens, h)))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Reference data
	mux.HandleFunc("GET /me", authed(catalogHandler.Whoami))
	mux.HandleFunc("GET /scoring-methods", authed(catalogHandler.ListScoringMethods))
	mux.HandleFunc("GET /scoring-methods/{id}", authed(catalogHandler.GetScoringMethod))
	mux.HandleFunc("GET /groups", authed(catalogHandler.ListGroups))

	// Sessions
	mux.HandleFunc("GET /sessions", authed(sessionHandler.ListSessions))
	mux.HandleFunc("POST /sessions", authed(sessionHandler.CreateSession))
	mux.HandleFunc("GET /sessions/{id}", authed(sessionHandler.GetSession))
	mux.HandleFunc("DELETE /sessions/{id}", authed(sessionHandler.DeleteSession))
	mux.HandleFunc("POST /sessions/{id}/start", authed(sessionHandler.StartSession))
	mux.HandleFunc("POST /sessions/{id}/complete", authed(sessionHandler.CompleteSession))
	mux.HandleFunc("POST /sessions/{id}/next-story", authed(sessionHandler.NextStory))

	// Participants
	mux.HandleFunc("POST /sessions/join", authed(participantHandler.Join))
	mux.HandleFunc("POST /sessions/{id}/leave", authed(participantHandler.Leave))
	mux.HandleFunc("GET /sessions/{id}/participants", authed(participantHandler.List))

	// Stories
	mux.HandleFunc("GET /sessions/{id}/stories", authed(storyHandler.ListStories))
	mux.HandleFunc("POST /sessions/{id}/stories", authed(storyHandler.AddStory))
	mux.HandleFunc("POST /stories/{id}/start", authed(storyHandler.StartVoting))
	mux.HandleFunc("POST /stories/{id}/reset", authed(storyHandler.ResetVoting))

	// Voting
	mux.HandleFunc("POST /stories/{id}/votes", authed(limiter.Limit(votingHandler.SubmitVote)))
	mux.HandleFunc("GET /stories/{id}/votes", authed(votingHandler.GetVotes))
	mux.HandleFunc("POST /stories/{id}/reveal", authed(votingHandler.RevealVotes))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("planning-poker API v1"))
	})

	return mux
}
