// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package peer defines the facade the election core runs against. The
// concrete peer owns the data store, transaction log and role lifecycle; the
// election only reads identity and history and writes the role transition.
package peer

import (
	"github.com/luxfi/election/quorum"
	"github.com/luxfi/election/vote"
)

// Learner distinguishes peers that vote from peers that only observe.
type Learner int

const (
	Participant Learner = iota
	Observer
)

func (l Learner) String() string {
	if l == Observer {
		return "observer"
	}
	return "participant"
}

// Peer is the host peer facade.
type Peer interface {
	// ID returns this peer's server id.
	ID() vote.ServerID

	// State returns the peer's current role.
	State() vote.State

	// SetState transitions the peer's role.
	SetState(vote.State)

	// LearnerType reports whether this peer votes.
	LearnerType() Learner

	// CurrentEpoch returns the last leader epoch this peer acknowledged.
	// A read failure is fatal to election participation.
	CurrentEpoch() (int64, error)

	// LastLoggedZxid returns the highest zxid in this peer's log.
	LastLoggedZxid() vote.Zxid

	// QuorumVerifier returns the active quorum configuration.
	QuorumVerifier() quorum.Verifier

	// LastSeenQuorumVerifier returns the most recent configuration noted via
	// NoteQuorumVerifier, which may be newer than the active one, or nil.
	LastSeenQuorumVerifier() quorum.Verifier

	// NoteQuorumVerifier records a configuration observed on the wire that
	// cannot be applied yet. Election tallies must also satisfy the noted
	// configuration until it becomes active.
	NoteQuorumVerifier(quorum.Verifier)

	// CurrentAndNextConfigVoters returns every voter in the active and (if
	// any) proposed configurations.
	CurrentAndNextConfigVoters() []vote.ServerID

	// CurrentVote returns the committed vote, nil before any election has
	// concluded.
	CurrentVote() *vote.Vote

	// ProcessReconfig applies a configuration with a higher version and
	// reports whether the active verifier changed.
	ProcessReconfig(quorum.Verifier) bool

	// ConfigFromString parses a configuration serialization received from a
	// peer.
	ConfigFromString(string) (quorum.Verifier, error)

	// Leader returns the leader subsystem hook while this peer is leading,
	// nil otherwise.
	Leader() LeaderHook
}

// LeaderHook is the slice of the leader subsystem the election's receiver
// worker talks to after this peer has won.
type LeaderHook interface {
	// ReportLookingSid records that [sid] is still searching for a leader.
	ReportLookingSid(vote.ServerID)

	// SetLeadingVoteSet hands the winning vote tracker to the leader so it
	// knows who acknowledged the election.
	SetLeadingVoteSet(*quorum.Tracker)
}
