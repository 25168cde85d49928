// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/election/transport"
	"github.com/luxfi/election/vote"
	"github.com/luxfi/election/wire"
)

// workerPollInterval bounds how long a stopped worker keeps blocking.
const workerPollInterval = 3 * time.Second

// senderLoop drains the send queue into the connection manager. Delivery
// reliability is the transport's concern; nothing is retried here.
func (fle *FastLeaderElection) senderLoop() {
	defer fle.wg.Done()
	for !fle.stop.Load() {
		m, ok := fle.sendq.Take(workerPollInterval)
		if !ok {
			continue
		}
		fle.cm.Send(m.SID, wire.Encode(m))
		fle.metrics.notificationsSent.Inc()
	}
}

// receiverLoop pulls raw frames out of the connection manager, decodes them
// and routes or replies.
func (fle *FastLeaderElection) receiverLoop() {
	defer fle.wg.Done()
	for !fle.stop.Load() {
		msg, ok := fle.cm.PollRecvQueue(workerPollInterval)
		if !ok {
			continue
		}
		if fle.handleFrame(msg) {
			return
		}
	}
}

// handleFrame processes one inbound frame. It reports true when the receiver
// must terminate because a reconfiguration is restarting the election.
func (fle *FastLeaderElection) handleFrame(msg transport.Message) bool {
	if len(msg.Frame) < wire.LegacyFrameSize {
		fle.log.Warn("dropping undersized frame",
			zap.Int64("sid", int64(msg.SID)),
			zap.Int("capacity", len(msg.Frame)),
		)
		fle.metrics.notificationsDropped.Inc()
		return false
	}

	f, err := wire.Decode(msg.Frame)
	if err != nil {
		fle.log.Warn("dropping malformed frame",
			zap.Int64("sid", int64(msg.SID)),
			zap.Error(err),
		)
		fle.metrics.notificationsDropped.Inc()
		return false
	}

	if len(f.Config) > 0 {
		if fle.maybeReconfig(f) {
			return true
		}
	}

	if !fle.validVoter(msg.SID) {
		// Non-voters never contribute to a tally; answer them directly so
		// they still learn the vote.
		if cur := fle.self.CurrentVote(); cur != nil {
			fle.sendq.Offer(vote.ToSend{
				SID:           msg.SID,
				Leader:        cur.Leader,
				Zxid:          cur.Zxid,
				ElectionEpoch: fle.logicalClock.Load(),
				PeerEpoch:     cur.PeerEpoch,
				State:         fle.self.State(),
				Config:        fle.configBytes(),
			})
		}
		return false
	}

	state, ok := vote.StateFromWire(f.State)
	if !ok {
		fle.log.Warn("dropping notification with unknown state",
			zap.Int64("sid", int64(msg.SID)),
			zap.Int32("state", f.State),
		)
		fle.metrics.notificationsDropped.Inc()
		return false
	}

	n := vote.Notification{
		Version:       f.Version,
		Leader:        f.Leader,
		Zxid:          f.Zxid,
		ElectionEpoch: f.ElectionEpoch,
		PeerEpoch:     f.PeerEpoch,
		State:         state,
		SID:           msg.SID,
		Config:        string(f.Config),
	}

	if fle.self.State() == vote.Looking {
		fle.recvq.Offer(n)

		// A sender stuck in an older election epoch catches up faster when
		// told our proposal right away.
		if state == vote.Looking && n.ElectionEpoch < fle.logicalClock.Load() {
			v := fle.Vote()
			fle.sendq.Offer(vote.ToSend{
				SID:           msg.SID,
				Leader:        v.Leader,
				Zxid:          v.Zxid,
				ElectionEpoch: fle.logicalClock.Load(),
				PeerEpoch:     v.PeerEpoch,
				State:         vote.Looking,
				Config:        fle.configBytes(),
			})
		}
		return false
	}

	// We already settled on a leader; a LOOKING sender learns it from our
	// committed vote.
	if state == vote.Looking {
		if cur := fle.self.CurrentVote(); cur != nil {
			fle.sendq.Offer(vote.ToSend{
				SID:           msg.SID,
				Leader:        cur.Leader,
				Zxid:          cur.Zxid,
				ElectionEpoch: cur.ElectionEpoch,
				PeerEpoch:     cur.PeerEpoch,
				State:         fle.self.State(),
				Config:        fle.configBytes(),
			})
		}
		if lh := fle.self.Leader(); lh != nil {
			fle.leadingMu.Lock()
			if fle.leadingVoteSet != nil {
				lh.SetLeadingVoteSet(fle.leadingVoteSet)
				fle.leadingVoteSet = nil
			}
			fle.leadingMu.Unlock()
			lh.ReportLookingSid(msg.SID)
		}
	}
	return false
}

// maybeReconfig applies a configuration newer than the active one. While
// LOOKING, a changed verifier restarts the election; it reports true when the
// receiver must terminate for that restart.
func (fle *FastLeaderElection) maybeReconfig(f wire.Frame) bool {
	qv, err := fle.self.ConfigFromString(string(f.Config))
	if err != nil {
		fle.log.Warn("ignoring unparseable configuration in notification",
			zap.Error(err),
		)
		return false
	}

	cur := fle.self.QuorumVerifier()
	if cur != nil && qv.Version() <= cur.Version() {
		return false
	}

	if fle.self.State() != vote.Looking {
		// Cannot apply mid-role; note it so tallies already require the
		// incoming configuration's quorum too.
		fle.log.Debug("deferring newer configuration until out of current role",
			zap.Int64("version", qv.Version()),
		)
		fle.self.NoteQuorumVerifier(qv)
		return false
	}

	fle.log.Info("applying configuration received mid-election",
		zap.Int64("version", qv.Version()),
		zap.Stringer("configID", qv.ConfigID()),
	)
	if fle.self.ProcessReconfig(qv) {
		fle.shuttingDown.Store(true)
		fle.Shutdown()
		return true
	}
	return false
}
