// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/election/vote"
)

func appendUint32(buf []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, v)
}

func appendUint64(buf []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, v)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	require := require.New(t)

	m := vote.ToSend{
		SID:           2,
		Leader:        3,
		Zxid:          0x100,
		ElectionEpoch: 1,
		PeerEpoch:     1,
		State:         vote.Looking,
		Config:        []byte("server.1=1\nserver.2=1\nserver.3=1\nversion=1"),
	}
	buf := Encode(m)
	require.Len(buf, VersionedHeaderSize+len(m.Config))

	f, err := Decode(buf)
	require.NoError(err)
	require.Equal(int32(vote.Looking), f.State)
	require.Equal(m.Leader, f.Leader)
	require.Equal(m.Zxid, f.Zxid)
	require.Equal(m.ElectionEpoch, f.ElectionEpoch)
	require.Equal(m.PeerEpoch, f.PeerEpoch)
	require.Equal(Version, f.Version)
	require.Equal(m.Config, f.Config)
}

func TestEncodeEmptyConfig(t *testing.T) {
	require := require.New(t)

	buf := Encode(vote.ToSend{Leader: 1, Zxid: 0x1, ElectionEpoch: 1, PeerEpoch: 1})
	require.Len(buf, VersionedHeaderSize)

	f, err := Decode(buf)
	require.NoError(err)
	require.Equal(Version, f.Version)
	require.Empty(f.Config)
}

func TestDecodeLegacyFrame(t *testing.T) {
	require := require.New(t)

	// 28-byte frame from a pre-epoch peer: the peer epoch comes out of the
	// zxid's high bits.
	buf := appendUint32(nil, 0)                 // state
	buf = appendUint64(buf, 9)                  // leader
	buf = appendUint64(buf, 0x0000000500000003) // zxid
	buf = appendUint64(buf, 42)                 // electionEpoch
	require.Len(buf, LegacyFrameSize)

	f, err := Decode(buf)
	require.NoError(err)
	require.Equal(int32(0), f.State)
	require.Equal(vote.ServerID(9), f.Leader)
	require.Equal(vote.Zxid(0x0000000500000003), f.Zxid)
	require.Equal(int64(42), f.ElectionEpoch)
	require.Equal(int64(0x5), f.PeerEpoch)
	require.Equal(int32(0), f.Version)
	require.Empty(f.Config)
}

func TestDecodeClassicFrame(t *testing.T) {
	require := require.New(t)

	buf := appendUint32(nil, 2) // state
	buf = appendUint64(buf, 1)  // leader
	buf = appendUint64(buf, 0x200)
	buf = appendUint64(buf, 7) // electionEpoch
	buf = appendUint64(buf, 4) // peerEpoch
	buf = appendUint32(buf, 1) // version word, not read in a classic frame
	require.Len(buf, ClassicFrameSize)

	f, err := Decode(buf)
	require.NoError(err)
	require.Equal(int32(2), f.State)
	require.Equal(int64(4), f.PeerEpoch)
	require.Equal(int32(0), f.Version)
	require.Empty(f.Config)
}

func TestDecodeOldVersionIgnoresTrailer(t *testing.T) {
	require := require.New(t)

	// Version 1 frames never carried a config; whatever trails the version
	// word is ignored.
	buf := appendUint32(nil, 0)
	buf = appendUint64(buf, 1)
	buf = appendUint64(buf, 0x1)
	buf = appendUint64(buf, 1)
	buf = appendUint64(buf, 1)
	buf = appendUint32(buf, 1) // version
	buf = append(buf, 0xde, 0xad)

	f, err := Decode(buf)
	require.NoError(err)
	require.Equal(int32(1), f.Version)
	require.Empty(f.Config)
}

func TestDecodeMalformed(t *testing.T) {
	require := require.New(t)

	base := Encode(vote.ToSend{Leader: 1, Zxid: 0x1, ElectionEpoch: 1, PeerEpoch: 1, Config: []byte("x")})

	tests := map[string][]byte{
		"empty":                      nil,
		"under legacy size":          base[:27],
		"between legacy and classic": base[:33],
		"between classic and header": base[:41],
	}
	for name, buf := range tests {
		_, err := Decode(buf)
		require.ErrorIs(err, ErrMalformedFrame, name)
	}
}

func TestDecodeBadConfigLen(t *testing.T) {
	require := require.New(t)

	frame := func(configLen uint32, trailer int) []byte {
		buf := appendUint32(nil, 0)
		buf = appendUint64(buf, 1)
		buf = appendUint64(buf, 0x1)
		buf = appendUint64(buf, 1)
		buf = appendUint64(buf, 1)
		buf = appendUint32(buf, uint32(Version))
		buf = appendUint32(buf, configLen)
		return append(buf, make([]byte, trailer)...)
	}

	// Length larger than the whole frame.
	_, err := Decode(frame(1000, 4))
	require.ErrorIs(err, ErrMalformedFrame)

	// Negative length after signed reinterpretation.
	_, err = Decode(frame(0xffffffff, 4))
	require.ErrorIs(err, ErrMalformedFrame)

	// Length claims more bytes than remain.
	_, err = Decode(frame(8, 4))
	require.ErrorIs(err, ErrMalformedFrame)
}
