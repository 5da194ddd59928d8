// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL connection string or SQLite file (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - JWTSecret: HMAC secret for bearer tokens (required)
  - RequestTimeout: per-request deadline (default: 10s)
  - VoteRateLimit / VoteRateBurst: per-caller vote submissions (default: 5/s, burst 10)
  - ScoringMethodsFile: optional YAML seed for scoring methods
  - GroupsFile: optional YAML group directory

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type
	-timeout          Request timeout
	-jwt-secret       Token secret
	-scoring-methods  Scoring method seed file
	-groups           Group directory file

# Environment Variables

Flags fall back to environment variables:

	PORT                 → -p
	DATABASE_URL         → -d
	DATABASE_TYPE        → -t
	REQUEST_TIMEOUT      → -timeout
	JWT_SECRET           → -jwt-secret
	SCORING_METHODS_FILE → -scoring-methods
	GROUPS_FILE          → -groups
	VOTE_RATE_LIMIT, VOTE_RATE_BURST (env only)

CLI flags take precedence over environment variables. main loads a
.env file into the environment before parsing.
*/
package cliparse
