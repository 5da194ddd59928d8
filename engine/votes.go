// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/models"
)

// SubmitVote records or replaces the caller's ballot on a voting story.
// Resubmitting the same value leaves one ballot with that value.
func (e *Engine) SubmitVote(ctx context.Context, caller auth.Caller, storyID, value string) (models.Vote, error) {
	story, session, err := getStoryInSession(ctx, e.db, storyID)
	if err != nil {
		return models.Vote{}, err
	}

	if caller.UserID != session.FacilitatorID {
		role, err := roleIn(ctx, e.db, caller, session)
		if err != nil {
			return models.Vote{}, err
		}
		switch role {
		case models.RoleVoter:
		case models.RoleObserver:
			return models.Vote{}, forbidden("Observers cannot vote")
		default:
			return models.Vote{}, forbidden("Not a participant in this session")
		}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return models.Vote{}, invalidValue("value is required")
	}
	if story.State != models.StoryVoting {
		return models.Vote{}, invalidState("Story is not open for voting")
	}

	method, err := e.methods.Get(ctx, session.ScoringMethodID)
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to load scoring method: %w", err)
	}
	if !method.Contains(value) {
		return models.Vote{}, invalidValue("%q is not a valid %s value", value, method.Name)
	}

	voteID, err := auth.GenerateID(16)
	if err != nil {
		return models.Vote{}, err
	}

	now := e.now()
	var vote models.Vote
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		// Row lock on the story orders this ballot against a concurrent reveal
		res, err := tx.ExecContext(ctx, `
			UPDATE story SET state = state WHERE id = $1 AND state = $2
		`, storyID, models.StoryVoting)
		if err != nil {
			return fmt.Errorf("failed to lock story: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return invalidState("Story is not open for voting")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vote (id, session_id, story_id, voter_id, voter_name, value, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (story_id, voter_id) DO UPDATE
			SET value = excluded.value,
			    voter_name = excluded.voter_name,
			    updated_at = excluded.updated_at
		`, voteID, session.ID, storyID, caller.UserID, caller.Name, value, now)
		if err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}

		return tx.QueryRowContext(ctx, `
			SELECT id, session_id, story_id, voter_id, voter_name, value, updated_at
			FROM vote WHERE story_id = $1 AND voter_id = $2
		`, storyID, caller.UserID).Scan(&vote.ID, &vote.SessionID, &vote.StoryID,
			&vote.VoterID, &vote.VoterName, &vote.Value, &vote.UpdatedAt)
	})
	if err != nil {
		return models.Vote{}, err
	}

	slog.Info("vote recorded", "story_id", storyID, "voter_id", caller.UserID)
	return vote, nil
}

// GetVotes returns the ledger for a story as the caller may see it. Before
// reveal only the caller's own value is visible.
func (e *Engine) GetVotes(ctx context.Context, caller auth.Caller, storyID string) (models.VoteView, error) {
	story, session, err := getStoryInSession(ctx, e.db, storyID)
	if err != nil {
		return models.VoteView{}, err
	}
	if _, err := requireReader(ctx, e.db, caller, session); err != nil {
		return models.VoteView{}, err
	}

	votes, err := listVotes(ctx, e.db, storyID)
	if err != nil {
		return models.VoteView{}, err
	}

	view := models.VoteView{
		StoryID:    storyID,
		IsRevealed: story.State == models.StoryCompleted,
		Votes:      votes,
	}
	for i := range view.Votes {
		if view.Votes[i].VoterID == caller.UserID {
			mine := view.Votes[i].Value
			view.MyVote = &mine
		}
		if !view.IsRevealed {
			view.Votes[i].Value = ""
		}
	}

	return view, nil
}

func listVotes(ctx context.Context, q querier, storyID string) ([]models.Vote, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, session_id, story_id, voter_id, voter_name, value, updated_at
		FROM vote
		WHERE story_id = $1
		ORDER BY updated_at, voter_id
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.SessionID, &v.StoryID, &v.VoterID, &v.VoterName,
			&v.Value, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}

	return votes, rows.Err()
}

// RevealVotes closes voting on a story and returns the aggregate. Revealing
// a completed story returns the result stored when it was revealed.
func (e *Engine) RevealVotes(ctx context.Context, caller auth.Caller, storyID string) (models.RevealResult, error) {
	story, session, err := getStoryInSession(ctx, e.db, storyID)
	if err != nil {
		return models.RevealResult{}, err
	}
	if err := requireFacilitator(caller, session); err != nil {
		return models.RevealResult{}, err
	}

	switch story.State {
	case models.StoryCompleted:
		return loadSnapshot(ctx, e.db, storyID)
	case models.StoryPending:
		return models.RevealResult{}, invalidState("Story is not being voted on")
	}

	method, err := e.methods.Get(ctx, session.ScoringMethodID)
	if err != nil {
		return models.RevealResult{}, fmt.Errorf("failed to load scoring method: %w", err)
	}

	var result models.RevealResult
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = e.finalize(ctx, tx, story, method.Values)
		if errors.Is(err, ErrInvalidState) {
			// Lost a race with another reveal; hand back its result
			current, lookupErr := getStory(ctx, tx, storyID)
			if lookupErr == nil && current.State == models.StoryCompleted {
				result, err = loadSnapshot(ctx, tx, storyID)
			}
		}
		return err
	})
	if err != nil {
		return models.RevealResult{}, err
	}

	slog.Info("votes revealed",
		"story_id", storyID,
		"total_votes", result.Summary.TotalVotes,
		"final_estimate", result.FinalEstimate)

	return result, nil
}

// finalize moves a voting story to completed, computes its aggregate and
// freezes it in result_snapshot. Ballots submitted after the state change
// are rejected by SubmitVote's story lock.
func (e *Engine) finalize(ctx context.Context, tx *sql.Tx, story models.Story, scale []string) (models.RevealResult, error) {
	now := e.now()

	res, err := tx.ExecContext(ctx, `
		UPDATE story SET state = $1, voting_completed_at = $2
		WHERE id = $3 AND state = $4
	`, models.StoryCompleted, now, story.ID, models.StoryVoting)
	if err != nil {
		return models.RevealResult{}, fmt.Errorf("failed to complete story: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.RevealResult{}, invalidState("Story is not being voted on")
	}

	votes, err := listVotes(ctx, tx, story.ID)
	if err != nil {
		return models.RevealResult{}, err
	}

	values := make([]string, len(votes))
	for i, v := range votes {
		values[i] = v.Value
	}

	result := models.RevealResult{
		StoryID:       story.ID,
		Values:        values,
		Votes:         votes,
		Summary:       Summarize(values),
		FinalEstimate: FinalEstimate(values, scale),
		ComputedAt:    now,
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE story SET final_estimate = $1 WHERE id = $2
	`, nullString(result.FinalEstimate), story.ID)
	if err != nil {
		return models.RevealResult{}, fmt.Errorf("failed to store final estimate: %w", err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return models.RevealResult{}, fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO result_snapshot (story_id, computed_at, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (story_id) DO UPDATE
		SET computed_at = excluded.computed_at, payload = excluded.payload
	`, story.ID, now, string(payload))
	if err != nil {
		return models.RevealResult{}, fmt.Errorf("failed to save result snapshot: %w", err)
	}

	return result, nil
}

func loadSnapshot(ctx context.Context, q querier, storyID string) (models.RevealResult, error) {
	var payload string
	err := q.QueryRowContext(ctx, `
		SELECT payload FROM result_snapshot WHERE story_id = $1
	`, storyID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RevealResult{}, notFound("No results for this story")
	}
	if err != nil {
		return models.RevealResult{}, fmt.Errorf("failed to query result snapshot: %w", err)
	}

	var result models.RevealResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return models.RevealResult{}, fmt.Errorf("failed to decode result snapshot: %w", err)
	}
	return result, nil
}

// ResetVoting returns a voting or completed story to pending and discards
// its ballots and stored result.
func (e *Engine) ResetVoting(ctx context.Context, caller auth.Caller, storyID string) (models.Story, error) {
	story, session, err := getStoryInSession(ctx, e.db, storyID)
	if err != nil {
		return models.Story{}, err
	}
	if err := requireFacilitator(caller, session); err != nil {
		return models.Story{}, err
	}
	if session.State == models.SessionComplete {
		return models.Story{}, invalidState("Session is complete")
	}
	if story.State == models.StoryPending {
		return models.Story{}, invalidState("Story has not been voted on")
	}

	var discarded int64
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE story
			SET state = $1, final_estimate = NULL, voting_started_at = NULL, voting_completed_at = NULL
			WHERE id = $2 AND state <> $1
		`, models.StoryPending, storyID)
		if err != nil {
			return fmt.Errorf("failed to reset story: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return invalidState("Story has not been voted on")
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM vote WHERE story_id = $1`, storyID)
		if err != nil {
			return fmt.Errorf("failed to discard votes: %w", err)
		}
		discarded, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `DELETE FROM result_snapshot WHERE story_id = $1`, storyID); err != nil {
			return fmt.Errorf("failed to discard result snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Story{}, err
	}

	story.State = models.StoryPending
	story.FinalEstimate = nil
	story.VotingStartedAt = nil
	story.VotingCompletedAt = nil

	slog.Info("voting reset", "story_id", storyID, "votes_discarded", discarded)
	return story, nil
}
