// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"github.com/luxfi/election/utils/set"
	"github.com/luxfi/election/vote"
)

// Tracker accumulates election acknowledgements toward one or two verifiers.
// During reconfiguration both the current and the proposed configuration must
// independently reach quorum.
type Tracker struct {
	verifiers []Verifier
	acks      set.Set[vote.ServerID]
}

// NewTracker returns a tracker over the given verifiers.
func NewTracker(verifiers ...Verifier) *Tracker {
	return &Tracker{
		verifiers: verifiers,
		acks:      set.NewSet[vote.ServerID](len(verifiers) * 4),
	}
}

// AddAck records an acknowledgement from [sid].
func (t *Tracker) AddAck(sid vote.ServerID) {
	t.acks.Add(sid)
}

// HasAllQuorums reports whether every registered verifier sees a quorum in
// the ack set.
func (t *Tracker) HasAllQuorums() bool {
	if len(t.verifiers) == 0 {
		return false
	}
	for _, v := range t.verifiers {
		if !v.ContainsQuorum(t.acks) {
			return false
		}
	}
	return true
}

// Acks returns the acknowledging server ids.
func (t *Tracker) Acks() []vote.ServerID {
	return t.acks.List()
}
