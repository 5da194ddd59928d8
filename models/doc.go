// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Envelope

Every response type embeds Ack, so bodies always carry "success" and,
on failure, "message":

	{"success": true, "session": {...}, "code": "K3Q9ZA"}
	{"success": false, "message": "Session not found"}

# Request Types

  - CreateSessionRequest: title, description, scoring_method_id, participant ids
  - JoinSessionRequest: session_id or session_code, role
  - CompleteSessionRequest: force
  - AddStoryRequest: title, description, acceptance_criteria
  - SubmitVoteRequest: value

# Domain Types

  - ScoringMethod: ordered estimate tokens ("1", "2", "3", "5", "?")
  - Session: facilitator-owned planning session
  - Participant: a user's membership and role in a session
  - Story: backlog item voted on in position order
  - Vote: one ballot per (story, voter)
  - RevealResult / VoteSummary: frozen aggregation of a revealed story

# Constants

Session states:

	SessionDraft     = "draft"
	SessionInSession = "in_session"
	SessionComplete  = "complete"

Story states:

	StoryPending   = "pending"
	StoryVoting    = "voting"
	StoryCompleted = "completed"

Roles:

	RoleFacilitator = "facilitator"
	RoleVoter       = "voter"
	RoleObserver    = "observer"
*/
package models
