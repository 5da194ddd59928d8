// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/models"
)

// MethodSource resolves scoring methods
type MethodSource interface {
	Get(ctx context.Context, id string) (models.ScoringMethod, error)
	Default(ctx context.Context) (models.ScoringMethod, error)
}

// GroupResolver expands a group id into member user ids
type GroupResolver interface {
	Members(ctx context.Context, groupID string) ([]string, error)
}

// Engine owns session, story and vote state. Every operation runs as the
// given caller and either applies completely or not at all.
type Engine struct {
	db      *sql.DB
	methods MethodSource
	groups  GroupResolver
	now     func() time.Time
}

func New(db *sql.DB, methods MethodSource, groups GroupResolver) *Engine {
	return &Engine{
		db:      db,
		methods: methods,
		groups:  groups,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// withTx runs fn in a transaction. fn must not touch e.db directly: the
// SQLite pool holds a single connection.
func (e *Engine) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const sessionColumns = `
	id, title, description, facilitator_id, facilitator_name, scoring_method_id,
	code, state, created_at, started_at, completed_at`

func scanSession(row scanner) (models.Session, error) {
	var s models.Session
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.FacilitatorID, &s.FacilitatorName,
		&s.ScoringMethodID, &s.Code, &s.State, &s.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return models.Session{}, err
	}
	s.StartedAt = timePtr(startedAt)
	s.CompletedAt = timePtr(completedAt)
	return s, nil
}

func getSession(ctx context.Context, q querier, id string) (models.Session, error) {
	s, err := scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM planning_session WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, notFound("Session not found")
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

const storyColumns = `
	id, session_id, sort_order, title, description, acceptance_criteria,
	state, final_estimate, voting_started_at, voting_completed_at`

func scanStory(row scanner) (models.Story, error) {
	var st models.Story
	var criteria, estimate sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&st.ID, &st.SessionID, &st.Position, &st.Title, &st.Description, &criteria,
		&st.State, &estimate, &startedAt, &completedAt)
	if err != nil {
		return models.Story{}, err
	}
	st.AcceptanceCriteria = stringPtr(criteria)
	st.FinalEstimate = stringPtr(estimate)
	st.VotingStartedAt = timePtr(startedAt)
	st.VotingCompletedAt = timePtr(completedAt)
	return st, nil
}

func getStory(ctx context.Context, q querier, id string) (models.Story, error) {
	st, err := scanStory(q.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM story WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Story{}, notFound("Story not found")
	}
	if err != nil {
		return models.Story{}, fmt.Errorf("failed to query story: %w", err)
	}
	return st, nil
}

// getStoryInSession loads a story together with its session
func getStoryInSession(ctx context.Context, q querier, storyID string) (models.Story, models.Session, error) {
	st, err := getStory(ctx, q, storyID)
	if err != nil {
		return models.Story{}, models.Session{}, err
	}
	s, err := getSession(ctx, q, st.SessionID)
	if err != nil {
		return models.Story{}, models.Session{}, err
	}
	return st, s, nil
}

// canManage reports whether the caller may run facilitator operations
func canManage(caller auth.Caller, s models.Session) bool {
	return caller.Admin || caller.UserID == s.FacilitatorID
}

func requireFacilitator(caller auth.Caller, s models.Session) error {
	if !canManage(caller, s) {
		return forbidden("Only the facilitator can do this")
	}
	return nil
}

// roleIn returns the caller's role in a session: facilitator, the role of
// an active participant row, or "" for outsiders.
func roleIn(ctx context.Context, q querier, caller auth.Caller, s models.Session) (string, error) {
	if caller.UserID == s.FacilitatorID {
		return models.RoleFacilitator, nil
	}

	var role string
	err := q.QueryRowContext(ctx, `
		SELECT role FROM participant
		WHERE session_id = $1 AND user_id = $2 AND active = TRUE
	`, s.ID, caller.UserID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query participant: %w", err)
	}
	return role, nil
}

// requireReader admits participants, the facilitator and admins
func requireReader(ctx context.Context, q querier, caller auth.Caller, s models.Session) (string, error) {
	role, err := roleIn(ctx, q, caller, s)
	if err != nil {
		return "", err
	}
	if role != "" {
		return role, nil
	}
	if caller.Admin {
		return auth.RoleAdmin, nil
	}
	return "", forbidden("Not a participant in this session")
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
