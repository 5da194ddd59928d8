// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Planning Poker API.

# Route Registration

NewRouter builds the scoring registry, engine and handlers and returns a
configured http.ServeMux:

	limiter := middleware.NewRateLimiter(cfg.VoteRateLimit, cfg.VoteRateBurst)
	defer limiter.Close()
	mux := router.NewRouter(db, cfg, groups, limiter)

Every route except /health and / runs behind WithLogging, WithTimeout and
Authenticate. Ballot submission is additionally rate limited per caller.

# Endpoints

Health:

	GET /health

Reference data:

	GET /me                    - Caller identity
	GET /scoring-methods       - Active scoring methods
	GET /scoring-methods/{id}  - One scoring method
	GET /groups                - Invitable groups

Sessions:

	GET    /sessions?mine=true          - List sessions
	POST   /sessions                    - Create session
	POST   /sessions/join               - Join by id or code
	GET    /sessions/{id}               - Full session view
	DELETE /sessions/{id}               - Delete a draft
	POST   /sessions/{id}/start         - Draft to in_session
	POST   /sessions/{id}/complete      - Close the session
	POST   /sessions/{id}/leave         - Leave
	GET    /sessions/{id}/participants  - Members and has_voted
	GET    /sessions/{id}/stories       - Story queue
	POST   /sessions/{id}/stories       - Append a story
	POST   /sessions/{id}/next-story    - Open the next pending story

Stories:

	POST /stories/{id}/start   - Open voting
	POST /stories/{id}/votes   - Submit or change a ballot
	GET  /stories/{id}/votes   - Ledger (values hidden until reveal)
	POST /stories/{id}/reveal  - Close voting and compute the result
	POST /stories/{id}/reset   - Discard ballots and return to pending
*/
package router
