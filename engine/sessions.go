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

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/db"
	"github.com/danielhkuo/planning-poker/directory"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/scoring"
)

// maxCodeAttempts bounds retries when a generated session code collides
const maxCodeAttempts = 5

// CreateSession creates a draft session facilitated by the caller. Invited
// users and group members become voters.
func (e *Engine) CreateSession(ctx context.Context, caller auth.Caller, req models.CreateSessionRequest) (models.Session, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Session{}, invalidValue("title is required")
	}

	method, err := e.resolveMethod(ctx, req.ScoringMethodID)
	if err != nil {
		return models.Session{}, err
	}

	invitees, err := e.resolveInvitees(ctx, caller, req.ParticipantUserIDs, req.ParticipantGroupIDs)
	if err != nil {
		return models.Session{}, err
	}

	sessionID, err := auth.GenerateID(16)
	if err != nil {
		return models.Session{}, err
	}

	now := e.now()
	session := models.Session{
		ID:              sessionID,
		Title:           title,
		Description:     strings.TrimSpace(req.Description),
		FacilitatorID:   caller.UserID,
		FacilitatorName: caller.Name,
		ScoringMethodID: method.ID,
		State:           models.SessionDraft,
		CreatedAt:       now,
	}

	for attempt := 1; ; attempt++ {
		code, err := auth.GenerateSessionCode()
		if err != nil {
			return models.Session{}, err
		}
		session.Code = code

		err = e.withTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO planning_session (id, title, description, facilitator_id, facilitator_name,
				                              scoring_method_id, code, state, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, session.ID, session.Title, session.Description, session.FacilitatorID,
				session.FacilitatorName, session.ScoringMethodID, session.Code, session.State, session.CreatedAt)
			if err != nil {
				return err
			}

			for _, userID := range invitees {
				participantID, err := auth.GenerateID(16)
				if err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx, `
					INSERT INTO participant (id, session_id, user_id, user_name, role, active, joined_at)
					VALUES ($1, $2, $3, $4, $5, TRUE, $6)
				`, participantID, session.ID, userID, userID, models.RoleVoter, now)
				if err != nil {
					return fmt.Errorf("failed to add participant: %w", err)
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err) && attempt < maxCodeAttempts {
			slog.Warn("session code collision, retrying", "attempt", attempt)
			continue
		}
		return models.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("session created",
		"session_id", session.ID,
		"facilitator_id", session.FacilitatorID,
		"scoring_method_id", session.ScoringMethodID,
		"participants", len(invitees))

	return session, nil
}

func (e *Engine) resolveMethod(ctx context.Context, id string) (models.ScoringMethod, error) {
	var method models.ScoringMethod
	var err error
	if id == "" {
		method, err = e.methods.Default(ctx)
	} else {
		method, err = e.methods.Get(ctx, id)
	}
	if errors.Is(err, scoring.ErrNotFound) {
		return models.ScoringMethod{}, notFound("Scoring method not found")
	}
	if err != nil {
		return models.ScoringMethod{}, err
	}
	if !method.Active {
		return models.ScoringMethod{}, invalidValue("Scoring method %s is not active", method.ID)
	}
	return method, nil
}

// resolveInvitees merges explicit user ids with group members, dropping
// duplicates, blanks and the facilitator.
func (e *Engine) resolveInvitees(ctx context.Context, caller auth.Caller, userIDs, groupIDs []string) ([]string, error) {
	seen := map[string]bool{caller.UserID: true}
	var invitees []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		invitees = append(invitees, id)
	}

	for _, id := range userIDs {
		add(id)
	}
	for _, groupID := range groupIDs {
		members, err := e.groups.Members(ctx, groupID)
		if errors.Is(err, directory.ErrUnknownGroup) {
			return nil, notFound("Group %s not found", groupID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve group: %w", err)
		}
		for _, id := range members {
			add(id)
		}
	}
	return invitees, nil
}

// JoinSession adds the caller to a session found by id or code. Joining
// again is a no-op for an active participant and reactivates one who left.
// It returns the session and the caller's effective role.
func (e *Engine) JoinSession(ctx context.Context, caller auth.Caller, req models.JoinSessionRequest) (models.Session, string, error) {
	role := req.Role
	if role == "" {
		role = models.RoleVoter
	}
	if role != models.RoleVoter && role != models.RoleObserver {
		return models.Session{}, "", invalidValue("role must be voter or observer")
	}

	var session models.Session
	var err error
	switch {
	case req.SessionID != "":
		session, err = getSession(ctx, e.db, req.SessionID)
	case strings.TrimSpace(req.SessionCode) != "":
		session, err = e.sessionByCode(ctx, req.SessionCode)
	default:
		return models.Session{}, "", invalidValue("session_id or session_code is required")
	}
	if err != nil {
		return models.Session{}, "", err
	}

	if caller.UserID == session.FacilitatorID {
		return session, models.RoleFacilitator, nil
	}

	participantID, err := auth.GenerateID(16)
	if err != nil {
		return models.Session{}, "", err
	}

	var effective string
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO participant (id, session_id, user_id, user_name, role, active, joined_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6)
			ON CONFLICT (session_id, user_id) DO UPDATE
			SET user_name = excluded.user_name,
			    role = CASE WHEN participant.active THEN participant.role ELSE excluded.role END,
			    active = TRUE
		`, participantID, session.ID, caller.UserID, caller.Name, role, e.now())
		if err != nil {
			return fmt.Errorf("failed to join session: %w", err)
		}

		return tx.QueryRowContext(ctx, `
			SELECT role FROM participant WHERE session_id = $1 AND user_id = $2
		`, session.ID, caller.UserID).Scan(&effective)
	})
	if err != nil {
		return models.Session{}, "", err
	}

	slog.Info("participant joined", "session_id", session.ID, "user_id", caller.UserID, "role", effective)

	return session, effective, nil
}

func (e *Engine) sessionByCode(ctx context.Context, code string) (models.Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	s, err := scanSession(e.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM planning_session WHERE code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, notFound("Session not found")
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

// LeaveSession marks the caller's participation inactive. Ballots already
// cast stay in the ledger.
func (e *Engine) LeaveSession(ctx context.Context, caller auth.Caller, sessionID string) error {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return err
	}
	if caller.UserID == session.FacilitatorID {
		return invalidState("The facilitator cannot leave their own session")
	}

	res, err := e.db.ExecContext(ctx, `
		UPDATE participant SET active = FALSE
		WHERE session_id = $1 AND user_id = $2 AND active = TRUE
	`, sessionID, caller.UserID)
	if err != nil {
		return fmt.Errorf("failed to leave session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("Not a participant in this session")
	}

	slog.Info("participant left", "session_id", sessionID, "user_id", caller.UserID)
	return nil
}

// ListSessions returns sessions newest first. With mine set, only sessions
// the caller facilitates or actively participates in.
func (e *Engine) ListSessions(ctx context.Context, caller auth.Caller, mine bool) ([]models.SessionSummary, error) {
	query := `
		SELECT ` + sessionColumns + `,
		       (SELECT COUNT(*) FROM story st WHERE st.session_id = planning_session.id)
		FROM planning_session`
	var args []interface{}
	if mine {
		query += `
		WHERE facilitator_id = $1
		   OR EXISTS (SELECT 1 FROM participant p
		              WHERE p.session_id = planning_session.id AND p.user_id = $1 AND p.active = TRUE)`
		args = append(args, caller.UserID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.SessionSummary{}
	for rows.Next() {
		var sum models.SessionSummary
		var startedAt, completedAt sql.NullTime
		s := &sum.Session
		err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.FacilitatorID, &s.FacilitatorName,
			&s.ScoringMethodID, &s.Code, &s.State, &s.CreatedAt, &startedAt, &completedAt, &sum.StoryCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = timePtr(startedAt)
		s.CompletedAt = timePtr(completedAt)
		sum.CreatedAgo = humanize.Time(s.CreatedAt)
		sum.IsFacilitator = s.FacilitatorID == caller.UserID
		sessions = append(sessions, sum)
	}

	return sessions, rows.Err()
}

// GetSessionData returns the full view of a session for one caller: the
// session, its scoring method, stories, active participants and the
// caller's role. The current story is the voting one, else the first
// pending one.
func (e *Engine) GetSessionData(ctx context.Context, caller auth.Caller, sessionID string) (models.SessionData, error) {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return models.SessionData{}, err
	}
	role, err := requireReader(ctx, e.db, caller, session)
	if err != nil {
		return models.SessionData{}, err
	}

	method, err := e.methods.Get(ctx, session.ScoringMethodID)
	if err != nil {
		return models.SessionData{}, fmt.Errorf("failed to load scoring method: %w", err)
	}

	stories, err := listStories(ctx, e.db, sessionID)
	if err != nil {
		return models.SessionData{}, err
	}

	current := currentStory(stories)
	currentID := ""
	if current != nil {
		currentID = current.ID
	}

	participants, err := participantStatuses(ctx, e.db, sessionID, currentID)
	if err != nil {
		return models.SessionData{}, err
	}

	return models.SessionData{
		Session:       session,
		ScoringMethod: method,
		CurrentStory:  current,
		Stories:       stories,
		Participants:  participants,
		Role:          role,
	}, nil
}

// ListParticipants returns active participants with whether each has a
// ballot on the current story.
func (e *Engine) ListParticipants(ctx context.Context, caller auth.Caller, sessionID string) ([]models.ParticipantStatus, error) {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := requireReader(ctx, e.db, caller, session); err != nil {
		return nil, err
	}

	stories, err := listStories(ctx, e.db, sessionID)
	if err != nil {
		return nil, err
	}
	currentID := ""
	if current := currentStory(stories); current != nil {
		currentID = current.ID
	}

	return participantStatuses(ctx, e.db, sessionID, currentID)
}

func currentStory(stories []models.Story) *models.Story {
	for i := range stories {
		if stories[i].State == models.StoryVoting {
			return &stories[i]
		}
	}
	for i := range stories {
		if stories[i].State == models.StoryPending {
			return &stories[i]
		}
	}
	return nil
}

func participantStatuses(ctx context.Context, q querier, sessionID, storyID string) ([]models.ParticipantStatus, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.session_id, p.user_id, p.user_name, p.role, p.active, p.joined_at,
		       EXISTS (SELECT 1 FROM vote v WHERE v.story_id = $2 AND v.voter_id = p.user_id)
		FROM participant p
		WHERE p.session_id = $1 AND p.active = TRUE
		ORDER BY p.joined_at, p.user_id
	`, sessionID, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	participants := []models.ParticipantStatus{}
	for rows.Next() {
		var p models.ParticipantStatus
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.UserName, &p.Role, &p.Active,
			&p.JoinedAt, &p.HasVoted); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// StartSession moves a draft session to in_session
func (e *Engine) StartSession(ctx context.Context, caller auth.Caller, sessionID string) (models.Session, error) {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if err := requireFacilitator(caller, session); err != nil {
		return models.Session{}, err
	}

	now := e.now()
	res, err := e.db.ExecContext(ctx, `
		UPDATE planning_session SET state = $1, started_at = $2
		WHERE id = $3 AND state = $4
	`, models.SessionInSession, now, sessionID, models.SessionDraft)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to start session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Session{}, invalidState("Session is not in draft")
	}

	session.State = models.SessionInSession
	session.StartedAt = &now

	slog.Info("session started", "session_id", sessionID)
	return session, nil
}

// CompleteSession moves an in_session session to complete. Unless force is
// set every story must already be completed. With force a voting story is
// revealed first and pending stories stay pending.
func (e *Engine) CompleteSession(ctx context.Context, caller auth.Caller, sessionID string, force bool) (models.Session, error) {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if err := requireFacilitator(caller, session); err != nil {
		return models.Session{}, err
	}
	if session.State != models.SessionInSession {
		return models.Session{}, invalidState("Session is not in progress")
	}

	method, err := e.methods.Get(ctx, session.ScoringMethodID)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load scoring method: %w", err)
	}

	now := e.now()
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		if !force {
			var open int
			err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM story WHERE session_id = $1 AND state <> $2
			`, sessionID, models.StoryCompleted).Scan(&open)
			if err != nil {
				return fmt.Errorf("failed to count stories: %w", err)
			}
			if open > 0 {
				return invalidState("%d stories are not completed", open)
			}
		} else {
			voting, err := votingStory(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if voting != nil {
				if _, err := e.finalize(ctx, tx, *voting, method.Values); err != nil {
					return err
				}
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE planning_session SET state = $1, completed_at = $2
			WHERE id = $3 AND state = $4
		`, models.SessionComplete, now, sessionID, models.SessionInSession)
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return invalidState("Session is not in progress")
		}
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}

	session.State = models.SessionComplete
	session.CompletedAt = &now

	slog.Info("session completed", "session_id", sessionID, "force", force)
	return session, nil
}

// DeleteSession removes a draft session with everything it owns
func (e *Engine) DeleteSession(ctx context.Context, caller auth.Caller, sessionID string) error {
	session, err := getSession(ctx, e.db, sessionID)
	if err != nil {
		return err
	}
	if err := requireFacilitator(caller, session); err != nil {
		return err
	}

	res, err := e.db.ExecContext(ctx, `
		DELETE FROM planning_session WHERE id = $1 AND state = $2
	`, sessionID, models.SessionDraft)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return invalidState("Only draft sessions can be deleted")
	}

	slog.Info("session deleted", "session_id", sessionID, "by", caller.UserID)
	return nil
}
