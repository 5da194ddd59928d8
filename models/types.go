// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Session state constants
const (
	SessionDraft     = "draft"
	SessionInSession = "in_session"
	SessionComplete  = "complete"
)

// Story state constants
const (
	StoryPending   = "pending"
	StoryVoting    = "voting"
	StoryCompleted = "completed"
)

// Participant roles
const (
	RoleFacilitator = "facilitator"
	RoleVoter       = "voter"
	RoleObserver    = "observer"
)

// NoMoreStories is returned by next-story when the queue is exhausted
const NoMoreStories = "no_more_stories"

// Envelope

// Ack is embedded in every response body so the JSON is always
// {"success": bool, ...} with a message on failure.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Request types

type CreateSessionRequest struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	ScoringMethodID     string   `json:"scoring_method_id"`
	ParticipantGroupIDs []string `json:"participant_group_ids"`
	ParticipantUserIDs  []string `json:"participant_user_ids"`
}

type JoinSessionRequest struct {
	SessionID   string `json:"session_id"`
	SessionCode string `json:"session_code"`
	Role        string `json:"role"`
}

type CompleteSessionRequest struct {
	Force bool `json:"force"`
}

type AddStoryRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
}

type SubmitVoteRequest struct {
	Value string `json:"value"`
}

// Response types

type WhoamiResponse struct {
	Ack
	User User `json:"user"`
}

type ScoringMethodsResponse struct {
	Ack
	Methods []ScoringMethod `json:"methods"`
}

type ScoringMethodResponse struct {
	Ack
	Method ScoringMethod `json:"method"`
}

type GroupsResponse struct {
	Ack
	Groups []Group `json:"groups"`
}

type SessionListResponse struct {
	Ack
	Sessions []SessionSummary `json:"sessions"`
}

type CreateSessionResponse struct {
	Ack
	Session Session `json:"session"`
	Code    string  `json:"code"`
}

type JoinSessionResponse struct {
	Ack
	Session Session `json:"session"`
	Role    string  `json:"role"`
}

type SessionResponse struct {
	Ack
	Session Session `json:"session"`
}

type SessionDataResponse struct {
	Ack
	SessionData
}

type ParticipantsResponse struct {
	Ack
	Participants []ParticipantStatus `json:"participants"`
}

type StoryResponse struct {
	Ack
	Story Story `json:"story"`
}

type StoriesResponse struct {
	Ack
	Stories []Story `json:"stories"`
}

// NextStoryResponse carries either the story that is now voting or
// Status == NoMoreStories with a nil Story.
type NextStoryResponse struct {
	Ack
	Story  *Story `json:"story"`
	Status string `json:"status,omitempty"`
}

type SubmitVoteResponse struct {
	Ack
	Vote Vote `json:"vote"`
}

type VotesResponse struct {
	Ack
	VoteView
}

type RevealResponse struct {
	Ack
	RevealResult
}

// Domain types

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type ScoringMethod struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Values      []string `json:"values"`
	Active      bool     `json:"active"`
	IsDefault   bool     `json:"is_default"`
}

// Contains reports whether value is one of the method's permitted tokens.
func (m ScoringMethod) Contains(value string) bool {
	for _, v := range m.Values {
		if v == value {
			return true
		}
	}
	return false
}

type Session struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	FacilitatorID   string     `json:"facilitator_id"`
	FacilitatorName string     `json:"facilitator_name"`
	ScoringMethodID string     `json:"scoring_method_id"`
	Code            string     `json:"code"`
	State           string     `json:"state"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type SessionSummary struct {
	Session
	CreatedAgo    string `json:"created_ago"`
	StoryCount    int    `json:"story_count"`
	IsFacilitator bool   `json:"is_facilitator"`
}

type Participant struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	JoinedAt  time.Time `json:"joined_at"`
}

// ParticipantStatus is a participant plus whether they have a ballot
// on the session's current story.
type ParticipantStatus struct {
	Participant
	HasVoted bool `json:"has_voted"`
}

type Story struct {
	ID                 string     `json:"id"`
	SessionID          string     `json:"session_id"`
	Position           int        `json:"position"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AcceptanceCriteria *string    `json:"acceptance_criteria,omitempty"`
	State              string     `json:"state"`
	FinalEstimate      *string    `json:"final_estimate,omitempty"`
	VotingStartedAt    *time.Time `json:"voting_started_at,omitempty"`
	VotingCompletedAt  *time.Time `json:"voting_completed_at,omitempty"`
}

type Vote struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	StoryID   string    `json:"story_id"`
	VoterID   string    `json:"voter_id"`
	VoterName string    `json:"voter_name"`
	Value     string    `json:"value,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionData struct {
	Session       Session             `json:"session"`
	ScoringMethod ScoringMethod       `json:"scoring_method"`
	CurrentStory  *Story              `json:"current_story"`
	Stories       []Story             `json:"stories"`
	Participants  []ParticipantStatus `json:"participants"`
	Role          string              `json:"role"`
}

// VoteView is the ledger as seen by one caller. Votes carries values only
// once the story is revealed; before that only who has voted.
type VoteView struct {
	StoryID    string  `json:"story_id"`
	IsRevealed bool    `json:"is_revealed"`
	MyVote     *string `json:"my_vote"`
	Votes      []Vote  `json:"votes"`
}

// VoteSummary is the aggregate of a revealed story. Average and Median
// are nil when no ballot is numeric.
type VoteSummary struct {
	Average    *float64 `json:"average"`
	Median     *float64 `json:"median"`
	Consensus  bool     `json:"consensus"`
	TotalVotes int      `json:"total_votes"`
}

type RevealResult struct {
	StoryID       string      `json:"story_id"`
	Values        []string    `json:"values"`
	Votes         []Vote      `json:"votes"`
	Summary       VoteSummary `json:"summary"`
	FinalEstimate string      `json:"final_estimate"`
	ComputedAt    time.Time   `json:"computed_at"`
}
