// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/election/utils/set"
	"github.com/luxfi/election/vote"
)

// Weighted is the weighted-majority verifier: a quorum is any ack set whose
// summed weight is more than half of the total. Voters with weight 0 never
// count toward a quorum.
type Weighted struct {
	weights map[vote.ServerID]uint32
	total   uint64
	version int64
}

// NewWeighted returns a weighted verifier. Entries with weight 0 remain
// members but carry no voting power.
func NewWeighted(weights map[vote.ServerID]uint32, version int64) *Weighted {
	w := &Weighted{
		weights: make(map[vote.ServerID]uint32, len(weights)),
		version: version,
	}
	for sid, weight := range weights {
		w.weights[sid] = weight
		w.total += uint64(weight)
	}
	return w
}

func (w *Weighted) VotingMembers() map[vote.ServerID]uint32 {
	members := make(map[vote.ServerID]uint32, len(w.weights))
	for sid, weight := range w.weights {
		members[sid] = weight
	}
	return members
}

func (w *Weighted) Weight(sid vote.ServerID) uint32 {
	return w.weights[sid]
}

func (w *Weighted) ContainsQuorum(acks set.Set[vote.ServerID]) bool {
	if w.total == 0 {
		return false
	}
	var acked uint64
	for sid := range acks {
		acked += uint64(w.weights[sid])
	}
	return 2*acked > w.total
}

func (w *Weighted) Version() int64 {
	return w.version
}

func (*Weighted) NeedOracle() bool {
	return false
}

func (*Weighted) AskOracle() bool {
	return false
}

func (*Weighted) RevalidateVoteSet(*Tracker, bool) bool {
	return false
}

func (w *Weighted) ConfigID() ids.ID {
	return configID(w.String())
}

func (w *Weighted) Equals(o Verifier) bool {
	return o != nil && sameMembers(w, o)
}

func (w *Weighted) String() string {
	return serializeConfig(w.VotingMembers(), w.version)
}
