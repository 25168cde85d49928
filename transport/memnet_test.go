// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func newTestNetwork() *Network {
	return NewNetwork(log.NewNoOpLogger(), clockwork.NewRealClock())
}

func TestDelivery(t *testing.T) {
	require := require.New(t)

	net := newTestNetwork()
	a := net.Register(1)
	b := net.Register(2)

	a.Send(2, []byte{0xca, 0xfe})
	msg, ok := b.PollRecvQueue(time.Second)
	require.True(ok)
	require.Equal(int64(1), int64(msg.SID))
	require.Equal([]byte{0xca, 0xfe}, msg.Frame)
}

func TestLoopback(t *testing.T) {
	require := require.New(t)

	net := newTestNetwork()
	a := net.Register(1)

	a.Send(1, []byte{0x01})
	msg, ok := a.PollRecvQueue(time.Second)
	require.True(ok)
	require.Equal(int64(1), int64(msg.SID))
}

func TestFramesAreCopied(t *testing.T) {
	require := require.New(t)

	net := newTestNetwork()
	a := net.Register(1)
	b := net.Register(2)

	buf := []byte{1, 2, 3}
	a.Send(2, buf)
	buf[0] = 99

	msg, ok := b.PollRecvQueue(time.Second)
	require.True(ok)
	require.Equal(byte(1), msg.Frame[0])
}

func TestLinkDown(t *testing.T) {
	require := require.New(t)

	net := newTestNetwork()
	a := net.Register(1)
	b := net.Register(2)

	net.SetLinkDown(1, 2, true)
	a.Send(2, []byte{0x01})
	_, ok := b.PollRecvQueue(10 * time.Millisecond)
	require.False(ok)

	// The reverse direction still delivers.
	b.Send(1, []byte{0x02})
	_, ok = a.PollRecvQueue(time.Second)
	require.True(ok)

	net.SetLinkDown(1, 2, false)
	a.Send(2, []byte{0x03})
	_, ok = b.PollRecvQueue(time.Second)
	require.True(ok)
}

func TestHalt(t *testing.T) {
	require := require.New(t)

	net := newTestNetwork()
	a := net.Register(1)
	b := net.Register(2)

	b.Halt()
	_, ok := b.PollRecvQueue(time.Hour)
	require.False(ok)

	// Frames to a halted endpoint vanish.
	a.Send(2, []byte{0x01})

	require.Zero(a.ConnectionThreadCount())
	require.True(a.HaveDelivered())
}
