// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vote defines the identifiers and message records exchanged during
// leader election.
package vote

import (
	"fmt"
	"math"
)

// ServerID identifies a configured peer.
type ServerID int64

// NoServer is the sentinel meaning "no vote". Observers propose it instead of
// their own id.
const NoServer ServerID = math.MinInt64

// Zxid is a transaction identifier. The high 32 bits carry the epoch of the
// leader that issued it, the low 32 bits a per-epoch counter. Zxids compare
// as signed 64-bit values.
type Zxid int64

// NoHistory is the zxid of a peer with no transaction history.
const NoHistory Zxid = -1

// NoEpoch is the sentinel epoch proposed by non-participants.
const NoEpoch int64 = math.MinInt64

// ZxidOf builds a zxid from an epoch and a per-epoch counter.
func ZxidOf(epoch int64, counter int64) Zxid {
	return Zxid(epoch<<32 | counter&0xffffffff)
}

// Epoch returns the leader epoch encoded in the high 32 bits.
func (z Zxid) Epoch() int64 {
	return int64(z) >> 32
}

// Counter returns the per-epoch counter encoded in the low 32 bits.
func (z Zxid) Counter() int64 {
	return int64(z) & 0xffffffff
}

func (z Zxid) String() string {
	return fmt.Sprintf("0x%x", int64(z))
}

// State is the role a peer is currently in. The numeric values are fixed by
// the wire format.
type State int32

const (
	Looking State = iota
	Following
	Leading
	Observing
)

// StateFromWire maps a raw wire state to a State. It reports false for
// values outside the known range.
func StateFromWire(raw int32) (State, bool) {
	switch State(raw) {
	case Looking, Following, Leading, Observing:
		return State(raw), true
	default:
		return 0, false
	}
}

func (s State) String() string {
	switch s {
	case Looking:
		return "looking"
	case Following:
		return "following"
	case Leading:
		return "leading"
	case Observing:
		return "observing"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Vote is a peer's opinion on who should lead.
type Vote struct {
	Version       int32
	Leader        ServerID
	Zxid          Zxid
	ElectionEpoch int64
	PeerEpoch     int64
	State         State
}

// TallyEquals reports whether two votes count as the same vote for quorum
// tallying. State is deliberately ignored.
func (v Vote) TallyEquals(o Vote) bool {
	return v.Leader == o.Leader &&
		v.Zxid == o.Zxid &&
		v.PeerEpoch == o.PeerEpoch &&
		v.ElectionEpoch == o.ElectionEpoch
}

func (v Vote) String() string {
	return fmt.Sprintf("(leader=%d, zxid=%s, electionEpoch=%d, peerEpoch=%d, state=%s)",
		v.Leader, v.Zxid, v.ElectionEpoch, v.PeerEpoch, v.State)
}

// Notification is a decoded inbound election message.
type Notification struct {
	Version       int32
	Leader        ServerID
	Zxid          Zxid
	ElectionEpoch int64
	PeerEpoch     int64
	State         State

	// SID is the sender.
	SID ServerID

	// Config is the sender's quorum configuration serialization, empty when
	// the frame carried none.
	Config string
}

// Vote returns the vote carried by the notification, without the sender's
// state.
func (n Notification) Vote() Vote {
	return Vote{
		Version:       n.Version,
		Leader:        n.Leader,
		Zxid:          n.Zxid,
		ElectionEpoch: n.ElectionEpoch,
		PeerEpoch:     n.PeerEpoch,
	}
}

// StatefulVote returns the vote carried by the notification, keeping the
// sender's state. Votes recorded out of election need the state to recognize
// an established leader.
func (n Notification) StatefulVote() Vote {
	v := n.Vote()
	v.State = n.State
	return v
}

func (n Notification) String() string {
	return fmt.Sprintf("(sid=%d, leader=%d, zxid=%s, electionEpoch=%d, peerEpoch=%d, state=%s)",
		n.SID, n.Leader, n.Zxid, n.ElectionEpoch, n.PeerEpoch, n.State)
}

// ToSend is an outbound election message queued for a single target peer.
type ToSend struct {
	// SID is the target.
	SID ServerID

	Leader        ServerID
	Zxid          Zxid
	ElectionEpoch int64
	PeerEpoch     int64
	State         State

	// Config is the byte serialization of the sender's current quorum
	// configuration. It may be empty but is always transmitted.
	Config []byte
}

func (m ToSend) String() string {
	return fmt.Sprintf("(sid=%d, leader=%d, zxid=%s, electionEpoch=%d, peerEpoch=%d, state=%s)",
		m.SID, m.Leader, m.Zxid, m.ElectionEpoch, m.PeerEpoch, m.State)
}
