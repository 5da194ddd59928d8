// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Planning Poker API.

# Handler Types

Each handler is a thin struct over the engine:

  - SessionHandler: session lifecycle and next-story advancement
  - ParticipantHandler: join by id or code, leave, list members
  - StoryHandler: story queue and per-story voting control
  - VotingHandler: ballots, ledger view and reveal
  - CatalogHandler: scoring methods, groups and /me

Handlers read the caller placed in the context by middleware.Authenticate
and never touch the database themselves.

# Session Lifecycle

Sessions progress draft → in_session → complete:

	POST /sessions                 → CreateSession (returns code)
	POST /sessions/{id}/stories    → AddStory
	POST /stories/{id}/start       → StartVoting (draft moves to in_session)
	POST /stories/{id}/votes       → SubmitVote
	POST /stories/{id}/reveal      → RevealVotes (stores the result)
	POST /sessions/{id}/next-story → NextStory
	POST /sessions/{id}/complete   → CompleteSession

# Responses

Every body carries "success". Failures look like

	{"success": false, "message": "Story is not open for voting"}

Engine error kinds map to status codes: not found 404, forbidden 403,
invalid state 409, invalid value 400. Other errors are logged and
answered with 500 "Internal error".
*/
package handlers
