// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Planning Poker API server.

Planning Poker runs estimation sessions: a facilitator queues stories,
participants cast hidden ballots from a scoring scale, and the reveal
freezes an aggregate (average, median, consensus) and a final estimate.

# Starting the Server

The server reads a .env file if present, then environment variables or
CLI flags:

	JWT_SECRET=... DATABASE_URL=poker.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --jwt-secret dev

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - JWT_SECRET (--jwt-secret): HMAC secret for bearer tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - REQUEST_TIMEOUT (--timeout): Per-request deadline (default: 10s)
  - VOTE_RATE_LIMIT, VOTE_RATE_BURST: Ballot submissions per second per caller (default: 5, burst 10)
  - SCORING_METHODS_FILE (--scoring-methods): YAML seed replacing the built-in scales
  - GROUPS_FILE (--groups): YAML group directory for invitations

# Architecture

The server uses a handler-based architecture with dependency injection:

  - engine: Session, story and ballot rules over database/sql
  - handlers: HTTP request handlers mapping engine errors to status codes
  - router: Route definitions using Go 1.22+ routing
  - middleware: Logging, timeouts, bearer auth, rate limiting, CORS, JSON helpers
  - scoring: Cached scoring method registry
  - directory: Static group directory
  - models: Request/response and domain types
  - auth: IDs, session codes and JWT identity
  - db: Connection, schema and seeding
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
