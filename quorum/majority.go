// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luxfi/ids"

	"github.com/luxfi/election/utils/set"
	"github.com/luxfi/election/vote"
)

// Majority is the plain strict-majority verifier: every voter weighs 1 and a
// quorum is more than half of them.
type Majority struct {
	voters  set.Set[vote.ServerID]
	version int64
}

// NewMajority returns a majority verifier over [voters].
func NewMajority(voters []vote.ServerID, version int64) *Majority {
	return &Majority{
		voters:  set.Of(voters...),
		version: version,
	}
}

func (m *Majority) VotingMembers() map[vote.ServerID]uint32 {
	members := make(map[vote.ServerID]uint32, m.voters.Len())
	for sid := range m.voters {
		members[sid] = 1
	}
	return members
}

func (m *Majority) Weight(sid vote.ServerID) uint32 {
	if m.voters.Contains(sid) {
		return 1
	}
	return 0
}

func (m *Majority) ContainsQuorum(acks set.Set[vote.ServerID]) bool {
	votes := 0
	for sid := range acks {
		if m.voters.Contains(sid) {
			votes++
		}
	}
	return 2*votes > m.voters.Len()
}

func (m *Majority) Version() int64 {
	return m.version
}

func (*Majority) NeedOracle() bool {
	return false
}

func (*Majority) AskOracle() bool {
	return false
}

func (*Majority) RevalidateVoteSet(*Tracker, bool) bool {
	return false
}

func (m *Majority) ConfigID() ids.ID {
	return configID(m.String())
}

func (m *Majority) Equals(o Verifier) bool {
	return o != nil && sameMembers(m, o)
}

func (m *Majority) String() string {
	return serializeConfig(m.VotingMembers(), m.version)
}

func serializeConfig(members map[vote.ServerID]uint32, version int64) string {
	sids := make([]vote.ServerID, 0, len(members))
	for sid := range members {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })

	var sb strings.Builder
	for _, sid := range sids {
		fmt.Fprintf(&sb, "server.%d=%d\n", sid, members[sid])
	}
	fmt.Fprintf(&sb, "version=%x", version)
	return sb.String()
}
