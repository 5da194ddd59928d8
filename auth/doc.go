// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identity and random identifier utilities.

# Identity

User accounts live outside this service. Callers present an HS256 bearer
token whose subject is the user id:

	tokens := auth.NewTokens(cfg.JWTSecret)
	caller, err := tokens.Parse(bearer)

A "role": "admin" claim sets Caller.Admin, which bypasses facilitator
checks. The middleware stores the caller in the request context with
WithCaller; handlers read it back with CallerFrom.

# Identifiers

GenerateID returns random hex ids for rows. GenerateSessionCode returns
a 6 character [A-Z0-9] join code; uniqueness is enforced by the
database and the engine retries on collision.
*/
package auth
