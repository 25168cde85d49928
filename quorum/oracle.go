// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"github.com/luxfi/election/utils/set"
	"github.com/luxfi/election/vote"
)

// Oracle is the external tie-breaker consulted by OracleMajority. True grants
// this peer the progress token; false grants it to the remote side.
type Oracle func() bool

// OracleMajority extends Majority for configurations of at most two voters,
// where a plain majority cannot survive a single failure. When the quorum
// check comes up one short, the oracle decides.
type OracleMajority struct {
	Majority
	oracle Oracle
}

// NewOracleMajority returns an oracle-assisted majority verifier.
func NewOracleMajority(voters []vote.ServerID, version int64, oracle Oracle) *OracleMajority {
	return &OracleMajority{
		Majority: *NewMajority(voters, version),
		oracle:   oracle,
	}
}

func (o *OracleMajority) ContainsQuorum(acks set.Set[vote.ServerID]) bool {
	if o.Majority.ContainsQuorum(acks) {
		return true
	}
	if !o.NeedOracle() {
		return false
	}
	// A lone voter out of two can hold a quorum only while it holds the
	// progress token.
	votes := 0
	for sid := range acks {
		if o.voters.Contains(sid) {
			votes++
		}
	}
	return votes > 0 && o.AskOracle()
}

func (o *OracleMajority) NeedOracle() bool {
	return o.voters.Len() <= 2
}

func (o *OracleMajority) AskOracle() bool {
	if o.oracle == nil {
		return false
	}
	return o.oracle()
}

func (o *OracleMajority) RevalidateVoteSet(vs *Tracker, timedOut bool) bool {
	return vs != nil && timedOut && vs.HasAllQuorums()
}

func (o *OracleMajority) Equals(v Verifier) bool {
	return v != nil && sameMembers(o, v)
}
