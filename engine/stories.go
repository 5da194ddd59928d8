// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/db"
	"github.com/danielhkuo/planning-poker/models"
)

const maxPositionAttempts = 3

// AddStory appends a pending story to a session's queue
func (e *Engine) AddStory(ctx context.Context, caller auth.Caller, sessionID string, req models.AddStoryRequest) (models.Story, error) {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return models.Story{}, err
	}
	if err := requireFacilitator(caller, session); err != nil {
		return models.Story{}, err
	}
	if session.State == models.SessionComplete {
		return models.Story{}, invalidState("Session is complete")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Story{}, invalidValue("title is required")
	}

	storyID, err := auth.GenerateID(16)
	if err != nil {
		return models.Story{}, err
	}

	story := models.Story{
		ID:          storyID,
		SessionID:   sessionID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		State:       models.StoryPending,
	}
	criteria := nullString(strings.TrimSpace(req.AcceptanceCriteria))
	story.AcceptanceCriteria = stringPtr(criteria)

	for attempt := 1; ; attempt++ {
		err = e.withTx(ctx, func(tx *sql.Tx) error {
			err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(sort_order), 0) + 1 FROM story WHERE session_id = $1
			`, sessionID).Scan(&story.Position)
			if err != nil {
				return fmt.Errorf("failed to compute position: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO story (id, session_id, sort_order, title, description, acceptance_criteria, state)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, story.ID, sessionID, story.Position, story.Title, story.Description, criteria, story.State)
			return err
		})
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err) && attempt < maxPositionAttempts {
			continue
		}
		return models.Story{}, fmt.Errorf("failed to add story: %w", err)
	}

	slog.Info("story added", "session_id", sessionID, "story_id", story.ID, "position", story.Position)
	return story, nil
}

// ListStories returns a session's stories in queue order
func (e *Engine) ListStories(ctx context.Context, caller auth.Caller, sessionID string) ([]models.Story, error) {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := requireReader(ctx, e.db, caller, session); err != nil {
		return nil, err
	}
	return listStories(ctx, e.db, sessionID)
}

func listStories(ctx context.Context, q querier, sessionID string) ([]models.Story, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM story WHERE session_id = $1 ORDER BY sort_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	stories := []models.Story{}
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, st)
	}

	return stories, rows.Err()
}

// votingStory returns the session's voting story, or nil
func votingStory(ctx context.Context, q querier, sessionID string) (*models.Story, error) {
	st, err := scanStory(q.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM story WHERE session_id = $1 AND state = $2`,
		sessionID, models.StoryVoting))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query voting story: %w", err)
	}
	return &st, nil
}

// StartVoting opens a pending story for ballots. A draft session moves to
// in_session on its first voting story.
func (e *Engine) StartVoting(ctx context.Context, caller auth.Caller, storyID string) (models.Story, error) {
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
	if story.State != models.StoryPending {
		return models.Story{}, invalidState("Story is not pending")
	}

	now := e.now()
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		voting, err := votingStory(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if voting != nil {
			return invalidState("Another story is already being voted on")
		}
		return openVoting(ctx, tx, session.ID, storyID, now)
	})
	if err != nil {
		return models.Story{}, err
	}

	story.State = models.StoryVoting
	story.VotingStartedAt = &now

	slog.Info("voting started", "session_id", session.ID, "story_id", storyID)
	return story, nil
}

func openVoting(ctx context.Context, tx *sql.Tx, sessionID, storyID string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE story SET state = $1, voting_started_at = $2
		WHERE id = $3 AND state = $4
	`, models.StoryVoting, now, storyID, models.StoryPending)
	if db.IsUniqueViolation(err) {
		return invalidState("Another story is already being voted on")
	}
	if err != nil {
		return fmt.Errorf("failed to start voting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return invalidState("Story is not pending")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE planning_session SET state = $1, started_at = COALESCE(started_at, $2)
		WHERE id = $3 AND state = $4
	`, models.SessionInSession, now, sessionID, models.SessionDraft)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// NextStory finalizes the voting story, if any, and opens the first
// pending story after it. It returns nil once no pending story follows;
// calling it again then changes nothing.
func (e *Engine) NextStory(ctx context.Context, caller auth.Caller, sessionID string) (*models.Story, error) {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireFacilitator(caller, session); err != nil {
		return nil, err
	}
	if session.State == models.SessionComplete {
		return nil, invalidState("Session is complete")
	}

	method, err := e.methods.Get(ctx, session.ScoringMethodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring method: %w", err)
	}

	now := e.now()
	var next *models.Story
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		voting, err := votingStory(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		var after int
		if voting != nil {
			if _, err := e.finalize(ctx, tx, *voting, method.Values); err != nil {
				return err
			}
			after = voting.Position
		} else {
			err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(sort_order), 0) FROM story WHERE session_id = $1 AND state = $2
			`, sessionID, models.StoryCompleted).Scan(&after)
			if err != nil {
				return fmt.Errorf("failed to find last completed story: %w", err)
			}
		}

		st, err := scanStory(tx.QueryRowContext(ctx, `
			SELECT `+storyColumns+` FROM story
			WHERE session_id = $1 AND state = $2 AND sort_order > $3
			ORDER BY sort_order
			LIMIT 1
		`, sessionID, models.StoryPending, after))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query next story: %w", err)
		}

		if err := openVoting(ctx, tx, sessionID, st.ID, now); err != nil {
			return err
		}
		st.State = models.StoryVoting
		st.VotingStartedAt = &now
		next = &st
		return nil
	})
	if err != nil {
		return nil, err
	}

	if next == nil {
		slog.Info("no more stories", "session_id", sessionID)
	} else {
		slog.Info("advanced to next story", "session_id", sessionID, "story_id", next.ID)
	}
	return next, nil
}
