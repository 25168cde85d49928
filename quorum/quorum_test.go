// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/election/utils/set"
	"github.com/luxfi/election/vote"
)

func TestMajorityQuorum(t *testing.T) {
	require := require.New(t)

	m := NewMajority([]vote.ServerID{1, 2, 3}, 1)

	require.False(m.ContainsQuorum(set.Of[vote.ServerID]()))
	require.False(m.ContainsQuorum(set.Of[vote.ServerID](1)))
	require.True(m.ContainsQuorum(set.Of[vote.ServerID](1, 2)))
	require.True(m.ContainsQuorum(set.Of[vote.ServerID](1, 2, 3)))

	// Non-members never count.
	require.False(m.ContainsQuorum(set.Of[vote.ServerID](4, 5)))
	require.True(m.ContainsQuorum(set.Of[vote.ServerID](1, 2, 99)))

	require.Equal(uint32(1), m.Weight(1))
	require.Equal(uint32(0), m.Weight(99))
	require.False(m.NeedOracle())
	require.False(m.RevalidateVoteSet(NewTracker(m), true))
}

func TestWeightedQuorum(t *testing.T) {
	require := require.New(t)

	w := NewWeighted(map[vote.ServerID]uint32{1: 3, 2: 1, 3: 1, 4: 0}, 1)

	// Total weight is 5; a quorum needs strictly more than 2.5.
	require.True(w.ContainsQuorum(set.Of[vote.ServerID](1)))
	require.False(w.ContainsQuorum(set.Of[vote.ServerID](2, 3)))
	require.True(w.ContainsQuorum(set.Of[vote.ServerID](1, 2)))

	// Weight-0 members contribute nothing.
	require.False(w.ContainsQuorum(set.Of[vote.ServerID](2, 3, 4)))
	require.Equal(uint32(0), w.Weight(4))
}

func TestOracleMajority(t *testing.T) {
	require := require.New(t)

	granted := false
	o := NewOracleMajority([]vote.ServerID{1, 2}, 1, func() bool { return granted })

	require.True(o.NeedOracle())
	require.False(o.AskOracle())

	// Both voters form a plain majority without the oracle.
	require.True(o.ContainsQuorum(set.Of[vote.ServerID](1, 2)))

	// A lone voter needs the progress token.
	require.False(o.ContainsQuorum(set.Of[vote.ServerID](1)))
	granted = true
	require.True(o.ContainsQuorum(set.Of[vote.ServerID](1)))

	three := NewOracleMajority([]vote.ServerID{1, 2, 3}, 1, func() bool { return true })
	require.False(three.NeedOracle())
	require.False(three.ContainsQuorum(set.Of[vote.ServerID](1)))
	require.True(three.ContainsQuorum(set.Of[vote.ServerID](1, 2)))
}

func TestOracleRevalidateVoteSet(t *testing.T) {
	require := require.New(t)

	o := NewOracleMajority([]vote.ServerID{1, 2}, 1, func() bool { return true })

	full := NewTracker(o)
	full.AddAck(1)
	full.AddAck(2)
	require.True(full.HasAllQuorums())

	require.True(o.RevalidateVoteSet(full, true))
	require.False(o.RevalidateVoteSet(full, false))
	require.False(o.RevalidateVoteSet(nil, true))

	empty := NewTracker(o)
	require.False(o.RevalidateVoteSet(empty, true))
}

func TestTrackerTwoVerifiers(t *testing.T) {
	require := require.New(t)

	cur := NewMajority([]vote.ServerID{1, 2, 3}, 1)
	next := NewMajority([]vote.ServerID{3, 4, 5}, 2)

	tr := NewTracker(cur, next)
	tr.AddAck(1)
	tr.AddAck(2)
	// Quorum of the current config only.
	require.False(tr.HasAllQuorums())

	tr.AddAck(3)
	tr.AddAck(4)
	// Now both configs are satisfied.
	require.True(tr.HasAllQuorums())

	require.False(NewTracker().HasAllQuorums())
}

func TestConfigRoundTrip(t *testing.T) {
	require := require.New(t)

	m := NewMajority([]vote.ServerID{1, 2, 3}, 0x1a)
	parsed, err := ParseConfig(m.String())
	require.NoError(err)
	require.True(m.Equals(parsed))
	require.IsType(&Majority{}, parsed)
	require.Equal(m.ConfigID(), parsed.ConfigID())

	w := NewWeighted(map[vote.ServerID]uint32{1: 3, 2: 1}, 7)
	parsed, err = ParseConfig(w.String())
	require.NoError(err)
	require.True(w.Equals(parsed))
	require.IsType(&Weighted{}, parsed)
	require.Equal(int64(7), parsed.Version())
}

func TestConfigParseErrors(t *testing.T) {
	require := require.New(t)

	for name, input := range map[string]string{
		"garbage":     "not a config",
		"bad sid":     "server.x=1\nversion=1",
		"bad weight":  "server.1=banana\nversion=1",
		"bad version": "server.1=1\nversion=zz",
		"unknown key": "peer.1=1\nversion=1",
		"no members":  "version=1",
		"no version":  "server.1=1",
	} {
		_, err := ParseConfig(input)
		require.ErrorIs(err, ErrConfigParse, name)
	}
}

func TestVerifierEquals(t *testing.T) {
	require := require.New(t)

	a := NewMajority([]vote.ServerID{1, 2, 3}, 1)
	b := NewMajority([]vote.ServerID{1, 2, 3}, 1)
	require.True(a.Equals(b))

	// A version-only bump is still the same configuration; it must not
	// force an election restart.
	c := NewMajority([]vote.ServerID{1, 2, 3}, 2)
	require.True(a.Equals(c))

	// Different members.
	d := NewMajority([]vote.ServerID{1, 2, 4}, 1)
	require.False(a.Equals(d))

	// A weighted verifier with uniform weights matches a majority one.
	u := NewWeighted(map[vote.ServerID]uint32{1: 1, 2: 1, 3: 1}, 1)
	require.True(a.Equals(u))

	require.False(a.Equals(nil))
}
