// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package election implements fast leader election: each peer in the LOOKING
// state proposes the most advanced transaction history it knows of and adopts
// better proposals as they arrive, until a quorum of voters agrees on one
// leader.
package election

import (
	"github.com/luxfi/election/vote"
)

// Election is the capability the host peer drives.
type Election interface {
	// LookForLeader blocks until a leader is decided, returning the winning
	// vote. It returns nil when the election was shut down first.
	LookForLeader() (*vote.Vote, error)

	// Shutdown halts the election and its workers. Idempotent.
	Shutdown()

	// Vote returns the current proposal.
	Vote() vote.Vote

	// LogicalClock returns the current election epoch.
	LogicalClock() int64
}
