// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and manages the schema.

# Drivers

Open accepts "postgres" (github.com/lib/pq) or "sqlite"
(modernc.org/sqlite, pure Go). SQLite connections get foreign keys
enabled and a single open connection.

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

# Schema Creation

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes. All statements use $N placeholders and portable
types so the same SQL runs on both drivers.

# Tables

  - scoring_method: named ordered value lists (JSON array in value_list)
  - planning_session: facilitator, scoring method, code, state
  - participant: one row per (session, user)
  - story: ordered queue, at most one voting per session
  - vote: one row per (story, voter)
  - result_snapshot: aggregation frozen at reveal

# Relationships

	scoring_method 1──* planning_session
	planning_session 1──* participant
	planning_session 1──* story
	story 1──* vote
	story 1──1 result_snapshot

Child rows use ON DELETE CASCADE.

# Seeding

SeedScoringMethods loads a YAML document (the embedded default or
SCORING_METHODS_FILE) and inserts methods whose id is new.
*/
package db
