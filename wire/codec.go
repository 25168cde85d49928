// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire encodes and decodes election notification frames.
//
// Frames are big-endian. Three length variants exist for compatibility with
// older peers:
//
//	legacy    (28 bytes)  state, leader, zxid, electionEpoch
//	classic   (40 bytes)  legacy + peerEpoch + a 4-byte version word that
//	                      is not read (decoded version is 0)
//	versioned (>40 bytes) legacy + peerEpoch + version, configLen, configBytes
//
// Encoding always emits the versioned form.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/election/vote"
)

const (
	// LegacyFrameSize is the minimum decodable frame.
	LegacyFrameSize = 28
	// ClassicFrameSize carries an explicit peer epoch.
	ClassicFrameSize = 40
	// VersionedHeaderSize is the fixed prefix of the versioned layout; the
	// config bytes follow it.
	VersionedHeaderSize = 44

	// Version is the wire version stamped on every encoded frame.
	Version int32 = 0x2
)

// ErrMalformedFrame reports a frame that is truncated or internally
// inconsistent. Such frames are dropped by the receiver.
var ErrMalformedFrame = errors.New("malformed notification frame")

// Frame is a decoded notification frame. State is the raw wire value; the
// receiver validates it separately so unknown states can be dropped without
// losing the rest of the frame.
type Frame struct {
	State         int32
	Leader        vote.ServerID
	Zxid          vote.Zxid
	ElectionEpoch int64
	PeerEpoch     int64
	Version       int32
	Config        []byte
}

// Encode serializes an outbound notification in the versioned layout. The
// config bytes may be empty but the header is always 44 bytes.
func Encode(m vote.ToSend) []byte {
	buf := make([]byte, 0, VersionedHeaderSize+len(m.Config))
	buf = binary.BigEndian.AppendUint32(buf, uint32(m.State))
	buf = binary.BigEndian.AppendUint64(buf, uint64(m.Leader))
	buf = binary.BigEndian.AppendUint64(buf, uint64(m.Zxid))
	buf = binary.BigEndian.AppendUint64(buf, uint64(m.ElectionEpoch))
	buf = binary.BigEndian.AppendUint64(buf, uint64(m.PeerEpoch))
	buf = binary.BigEndian.AppendUint32(buf, uint32(Version))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(m.Config)))
	return append(buf, m.Config...)
}

// Decode parses a frame in any of the three layouts.
func Decode(buf []byte) (Frame, error) {
	capacity := len(buf)
	if capacity < LegacyFrameSize {
		return Frame{}, ErrMalformedFrame
	}

	r := frameReader{buf: buf}
	f := Frame{
		State:         int32(r.readUint32()),
		Leader:        vote.ServerID(r.readUint64()),
		Zxid:          vote.Zxid(r.readUint64()),
		ElectionEpoch: int64(r.readUint64()),
	}

	if capacity == LegacyFrameSize {
		// Pre-epoch peers derive the epoch from the zxid.
		f.PeerEpoch = f.Zxid.Epoch()
		return f, nil
	}

	f.PeerEpoch = int64(r.readUint64())
	if r.err != nil {
		return Frame{}, r.err
	}
	if capacity == ClassicFrameSize {
		return f, nil
	}

	f.Version = int32(r.readUint32())
	if r.err != nil {
		return Frame{}, r.err
	}
	if f.Version > 1 {
		configLen := int32(r.readUint32())
		if r.err != nil || configLen < 0 || int(configLen) > capacity {
			return Frame{}, ErrMalformedFrame
		}
		config := r.readBytes(int(configLen))
		if r.err != nil {
			return Frame{}, r.err
		}
		f.Config = config
	}
	return f, nil
}

// frameReader walks a frame buffer; the first short read poisons every later
// one.
type frameReader struct {
	buf []byte
	off int
	err error
}

func (r *frameReader) readUint32() uint32 {
	if r.err != nil || len(r.buf)-r.off < 4 {
		r.err = ErrMalformedFrame
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *frameReader) readUint64() uint64 {
	if r.err != nil || len(r.buf)-r.off < 8 {
		r.err = ErrMalformedFrame
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *frameReader) readBytes(n int) []byte {
	if r.err != nil || n < 0 || len(r.buf)-r.off < n {
		r.err = ErrMalformedFrame
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}
