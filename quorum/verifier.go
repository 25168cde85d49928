// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package quorum decides which sets of peers constitute a majority under the
// current configuration, and tracks election acknowledgements against one or
// two configurations at once.
package quorum

import (
	"crypto/sha256"

	"github.com/luxfi/ids"

	"github.com/luxfi/election/utils/set"
	"github.com/luxfi/election/vote"
)

// Verifier is the membership predicate an election runs against. A verifier
// is immutable; reconfiguration replaces it wholesale.
type Verifier interface {
	// VotingMembers returns the voting peers and their weights.
	VotingMembers() map[vote.ServerID]uint32

	// Weight returns the voting weight of [sid], 0 for non-voters.
	Weight(sid vote.ServerID) uint32

	// ContainsQuorum reports whether [acks] forms a quorum.
	ContainsQuorum(acks set.Set[vote.ServerID]) bool

	// Version orders configurations; a higher version replaces a lower one.
	Version() int64

	// NeedOracle reports whether this configuration requires the external
	// oracle to make progress.
	NeedOracle() bool

	// AskOracle consults the external oracle. The result's polarity is
	// defined by the caller's use; see OracleMajority.
	AskOracle() bool

	// RevalidateVoteSet re-checks a previously full tracker on the election
	// loop's idle path. Only oracle-assisted configurations ever report
	// true here.
	RevalidateVoteSet(vs *Tracker, timedOut bool) bool

	// ConfigID is a digest identity of the serialized configuration.
	ConfigID() ids.ID

	// Equals reports whether both verifiers carry the same voting members
	// and weights. Version is deliberately ignored: a version-only bump is
	// applied in place and must not force an election restart.
	Equals(Verifier) bool

	// String returns the canonical serialization embedded in notification
	// frames and accepted by ParseConfig.
	String() string
}

func configID(serialized string) ids.ID {
	return ids.ID(sha256.Sum256([]byte(serialized)))
}

func sameMembers(a, b Verifier) bool {
	am, bm := a.VotingMembers(), b.VotingMembers()
	if len(am) != len(bm) {
		return false
	}
	for sid, w := range am {
		if bm[sid] != w {
			return false
		}
	}
	return true
}
