// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZxid(t *testing.T) {
	require := require.New(t)

	z := ZxidOf(5, 3)
	require.Equal(Zxid(0x0000000500000003), z)
	require.Equal(int64(5), z.Epoch())
	require.Equal(int64(3), z.Counter())

	require.Equal(Zxid(-1), NoHistory)
}

func TestTallyEqualsIgnoresState(t *testing.T) {
	require := require.New(t)

	a := Vote{Leader: 3, Zxid: 0x100, ElectionEpoch: 1, PeerEpoch: 1, State: Looking}
	b := Vote{Leader: 3, Zxid: 0x100, ElectionEpoch: 1, PeerEpoch: 1, State: Leading}
	require.True(a.TallyEquals(b))
	require.True(b.TallyEquals(a))

	c := b
	c.ElectionEpoch = 2
	require.False(a.TallyEquals(c))

	d := b
	d.Zxid = 0x101
	require.False(a.TallyEquals(d))

	e := b
	e.Leader = 2
	require.False(a.TallyEquals(e))

	f := b
	f.PeerEpoch = 2
	require.False(a.TallyEquals(f))
}

func TestStateFromWire(t *testing.T) {
	require := require.New(t)

	for raw, want := range map[int32]State{
		0: Looking,
		1: Following,
		2: Leading,
		3: Observing,
	} {
		got, ok := StateFromWire(raw)
		require.True(ok)
		require.Equal(want, got)
	}

	_, ok := StateFromWire(4)
	require.False(ok)
	_, ok = StateFromWire(-1)
	require.False(ok)
}

func TestNotificationVotes(t *testing.T) {
	require := require.New(t)

	n := Notification{
		Leader:        7,
		Zxid:          0x200,
		ElectionEpoch: 4,
		PeerEpoch:     2,
		State:         Following,
		SID:           1,
	}
	require.Equal(State(Looking), n.Vote().State)
	require.Equal(State(Following), n.StatefulVote().State)
	require.True(n.Vote().TallyEquals(n.StatefulVote()))
}
