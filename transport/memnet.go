// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/luxfi/log"
	"go.uber.org/zap"

	"github.com/luxfi/election/queue"
	"github.com/luxfi/election/vote"
)

// Network is an in-process delivery fabric. Every registered endpoint is a
// ConnectionManager; frames are copied on delivery so senders may reuse
// buffers. Links can be taken down per direction to simulate partitions.
type Network struct {
	log   log.Logger
	clock clockwork.Clock

	mu        sync.Mutex
	endpoints map[vote.ServerID]*Endpoint
	down      map[[2]vote.ServerID]bool
}

// NewNetwork returns an empty fabric.
func NewNetwork(lg log.Logger, clock clockwork.Clock) *Network {
	return &Network{
		log:       lg,
		clock:     clock,
		endpoints: make(map[vote.ServerID]*Endpoint),
		down:      make(map[[2]vote.ServerID]bool),
	}
}

// Register creates the endpoint for [sid]. Registering an id twice replaces
// the previous endpoint.
func (n *Network) Register(sid vote.ServerID) *Endpoint {
	e := &Endpoint{
		net:   n,
		sid:   sid,
		recvq: queue.New[Message](n.clock),
	}
	n.mu.Lock()
	n.endpoints[sid] = e
	n.mu.Unlock()
	return e
}

// SetLinkDown drops (or restores) delivery from [from] to [to].
func (n *Network) SetLinkDown(from, to vote.ServerID, isDown bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if isDown {
		n.down[[2]vote.ServerID{from, to}] = true
	} else {
		delete(n.down, [2]vote.ServerID{from, to})
	}
}

func (n *Network) deliver(from, to vote.ServerID, frame []byte) {
	n.mu.Lock()
	target, ok := n.endpoints[to]
	isDown := n.down[[2]vote.ServerID{from, to}]
	n.mu.Unlock()

	if !ok || isDown {
		n.log.Debug("dropping frame",
			zap.Int64("from", int64(from)),
			zap.Int64("to", int64(to)),
			zap.Bool("linkDown", isDown),
		)
		return
	}

	copied := make([]byte, len(frame))
	copy(copied, frame)
	target.recvq.Offer(Message{SID: from, Frame: copied})
}

// Endpoint is one peer's view of the fabric.
type Endpoint struct {
	net   *Network
	sid   vote.ServerID
	recvq *queue.Queue[Message]
}

var _ ConnectionManager = (*Endpoint)(nil)

// Send delivers synchronously; a frame addressed to the local id loops back
// into the endpoint's own receive queue, which the election loop relies on to
// count its own vote.
func (e *Endpoint) Send(sid vote.ServerID, frame []byte) {
	e.net.deliver(e.sid, sid, frame)
}

func (e *Endpoint) PollRecvQueue(timeout time.Duration) (Message, bool) {
	return e.recvq.Take(timeout)
}

// HaveDelivered is always true: the fabric has no outbound buffering.
func (*Endpoint) HaveDelivered() bool {
	return true
}

func (*Endpoint) ConnectAll() {}

func (e *Endpoint) Halt() {
	e.recvq.Close()
	e.net.mu.Lock()
	if e.net.endpoints[e.sid] == e {
		delete(e.net.endpoints, e.sid)
	}
	e.net.mu.Unlock()
}

func (*Endpoint) ConnectionThreadCount() int {
	return 0
}
