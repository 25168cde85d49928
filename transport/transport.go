// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport defines the point-to-point delivery contract the election
// core runs over, and an in-process fabric for tests.
package transport

import (
	"time"

	"github.com/luxfi/election/vote"
)

// Message is a raw frame received from a peer.
type Message struct {
	// SID is the sender.
	SID   vote.ServerID
	Frame []byte
}

// ConnectionManager is the byte-level transport between peers. Delivery is
// best effort; the election algorithm only requires eventual delivery and
// does not rely on per-sender ordering.
type ConnectionManager interface {
	// Send queues [frame] for delivery to [sid]. Errors are the transport's
	// concern and are never surfaced to the caller.
	Send(sid vote.ServerID, frame []byte)

	// PollRecvQueue blocks up to [timeout] for an inbound frame.
	PollRecvQueue(timeout time.Duration) (Message, bool)

	// HaveDelivered reports whether every per-peer outbound queue is empty.
	HaveDelivered() bool

	// ConnectAll kick-starts reconnect attempts to all known voters.
	ConnectAll()

	// Halt tears down all connections and unblocks PollRecvQueue.
	Halt()

	// ConnectionThreadCount reports the number of live connection workers.
	ConnectionThreadCount() int
}
