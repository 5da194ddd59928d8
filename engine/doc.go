// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine implements Planning Poker sessions, stories and ballots.

# State Machines

Sessions move draft → in_session → complete. Stories move
pending → voting → completed, and ResetVoting returns a story to pending.
At most one story per session is voting at a time.

Every transition is a conditional UPDATE on the expected prior state, so
a request that loses a race sees zero affected rows and gets
ErrInvalidState instead of overwriting the winner.

# Ballots

SubmitVote locks the story row and upserts on (story_id, voter_id), so a
voter has at most one ballot and a ballot is either in the revealed
result or rejected. RevealVotes computes Summarize and FinalEstimate over
the ballots inside the same transaction and stores the result; repeating
a reveal returns the stored result.

# Errors

Operations return *Error values whose Kind is one of ErrNotFound,
ErrForbidden, ErrInvalidState or ErrInvalidValue:

	if errors.Is(err, engine.ErrInvalidState) {
		// 409
	}
*/
package engine
