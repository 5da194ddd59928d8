// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the configured database type and verifies the connection.
func Open(dbType, url string) (*sql.DB, error) {
	var conn *sql.DB
	var err error

	switch dbType {
	case "postgres":
		conn, err = sql.Open("postgres", url)
	case "sqlite":
		conn, err = sql.Open("sqlite", sqliteDSN(url))
		if conn != nil {
			// One writer keeps SQLite transactions serialized
			conn.SetMaxOpenConns(1)
			conn.SetConnMaxLifetime(0)
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

func sqliteDSN(url string) string {
	if strings.Contains(url, "foreign_keys") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

const schema = `
-- Scoring methods
CREATE TABLE IF NOT EXISTS scoring_method (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    value_list TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    is_default BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Sessions
CREATE TABLE IF NOT EXISTS planning_session (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    facilitator_id TEXT NOT NULL,
    facilitator_name TEXT NOT NULL DEFAULT '',
    scoring_method_id TEXT NOT NULL REFERENCES scoring_method(id),
    code TEXT NOT NULL UNIQUE,
    state TEXT NOT NULL DEFAULT 'draft' CHECK (state IN ('draft', 'in_session', 'complete')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    started_at TIMESTAMP,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_session_facilitator ON planning_session(facilitator_id);

-- Participants
CREATE TABLE IF NOT EXISTS participant (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES planning_session(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    user_name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'voter' CHECK (role IN ('voter', 'observer')),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (session_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_participant_user ON participant(user_id);

-- Stories
CREATE TABLE IF NOT EXISTS story (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES planning_session(id) ON DELETE CASCADE,
    sort_order INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    acceptance_criteria TEXT,
    state TEXT NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'voting', 'completed')),
    final_estimate TEXT,
    voting_started_at TIMESTAMP,
    voting_completed_at TIMESTAMP,
    UNIQUE (session_id, sort_order)
);

-- At most one story per session is voting
CREATE UNIQUE INDEX IF NOT EXISTS idx_story_one_voting ON story(session_id) WHERE state = 'voting';

-- Votes
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES planning_session(id) ON DELETE CASCADE,
    story_id TEXT NOT NULL REFERENCES story(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    voter_name TEXT NOT NULL DEFAULT '',
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (story_id, voter_id)
);

-- Result snapshots, frozen at reveal
CREATE TABLE IF NOT EXISTS result_snapshot (
    story_id TEXT PRIMARY KEY REFERENCES story(id) ON DELETE CASCADE,
    computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    payload TEXT NOT NULL
);
`
