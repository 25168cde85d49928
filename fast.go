// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/election/config"
	"github.com/luxfi/election/peer"
	"github.com/luxfi/election/queue"
	"github.com/luxfi/election/quorum"
	"github.com/luxfi/election/transport"
	"github.com/luxfi/election/vote"
)

// ErrEpochUnreadable is returned by LookForLeader when the peer's current
// epoch cannot be read. The peer cannot participate until it recovers.
var ErrEpochUnreadable = errors.New("unable to read current epoch")

// FastLeaderElection elects the leader with the most advanced history a
// quorum will acknowledge.
type FastLeaderElection struct {
	log    log.Logger
	clock  clockwork.Clock
	params config.Parameters

	self    peer.Peer
	cm      transport.ConnectionManager
	metrics *electionMetrics

	stop         atomic.Bool
	shuttingDown atomic.Bool

	// logicalClock distinguishes successive election instances. Messages
	// carrying a larger election epoch preempt any in-progress tally.
	logicalClock atomic.Int64

	// mu guards the proposal so external readers never observe a torn vote.
	mu             sync.Mutex
	proposedLeader vote.ServerID
	proposedZxid   vote.Zxid
	proposedEpoch  int64

	sendq *queue.Queue[vote.ToSend]
	recvq *queue.Queue[vote.Notification]

	// leadingVoteSet is written when this peer wins and handed to the leader
	// subsystem by the receiver worker once a LOOKING peer checks in.
	leadingMu      sync.Mutex
	leadingVoteSet *quorum.Tracker

	wg sync.WaitGroup
}

var _ Election = (*FastLeaderElection)(nil)

// Opt configures a FastLeaderElection.
type Opt func(*FastLeaderElection)

// WithLogger sets the logger.
func WithLogger(lg log.Logger) Opt {
	return func(fle *FastLeaderElection) {
		fle.log = lg
	}
}

// WithClock sets the clock; tests use a fake one.
func WithClock(clock clockwork.Clock) Opt {
	return func(fle *FastLeaderElection) {
		fle.clock = clock
	}
}

// New starts a FastLeaderElection for [self] over [cm]. The messenger workers
// run until Shutdown.
func New(
	self peer.Peer,
	cm transport.ConnectionManager,
	params config.Parameters,
	registerer prometheus.Registerer,
	opts ...Opt,
) (*FastLeaderElection, error) {
	if err := params.Valid(); err != nil {
		return nil, err
	}

	fle := &FastLeaderElection{
		log:            log.NewNoOpLogger(),
		clock:          clockwork.NewRealClock(),
		params:         params,
		self:           self,
		cm:             cm,
		proposedLeader: -1,
		proposedZxid:   -1,
		proposedEpoch:  -1,
	}
	for _, opt := range opts {
		opt(fle)
	}

	var err error
	fle.metrics, err = newElectionMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register election metrics: %w", err)
	}

	fle.sendq = queue.New[vote.ToSend](fle.clock)
	fle.recvq = queue.New[vote.Notification](fle.clock)

	fle.wg.Add(2)
	go fle.senderLoop()
	go fle.receiverLoop()
	return fle, nil
}

// LookForLeader runs one election instance. It returns the winning vote once
// a quorum agrees, or nil when the election was shut down first.
func (fle *FastLeaderElection) LookForLeader() (*vote.Vote, error) {
	fle.metrics.electionsStarted.Inc()
	start := fle.clock.Now()
	defer func() {
		fle.metrics.electionSeconds.Set(fle.clock.Since(start).Seconds())
	}()

	// recvset holds votes from the current election epoch, outofelection
	// holds FOLLOWING/LEADING votes from any epoch.
	recvset := make(map[vote.ServerID]vote.Vote)
	outofelection := make(map[vote.ServerID]vote.Vote)

	// voteSet is the tally for the current proposal, kept across iterations
	// for the idle-path revalidation and the LEADING oracle path.
	var voteSet *quorum.Tracker

	fle.mu.Lock()
	fle.logicalClock.Add(1)
	initID := fle.initID()
	initZxid := fle.initZxid()
	initEpoch, err := fle.initEpoch()
	if err != nil {
		fle.mu.Unlock()
		return nil, err
	}
	fle.proposedLeader = initID
	fle.proposedZxid = initZxid
	fle.proposedEpoch = initEpoch
	fle.mu.Unlock()
	fle.metrics.logicalClock.Set(float64(fle.logicalClock.Load()))

	fle.log.Info("new election instance",
		zap.Int64("logicalClock", fle.logicalClock.Load()),
		zap.Int64("proposedLeader", int64(initID)),
		zap.Stringer("proposedZxid", initZxid),
		zap.Int64("proposedEpoch", initEpoch),
	)
	fle.sendNotifications()

	notTimeout := fle.params.MinNotificationInterval

	for fle.self.State() == vote.Looking && !fle.stop.Load() {
		n, ok := fle.recvq.Take(notTimeout)
		if !ok {
			if fle.stop.Load() {
				break
			}
			// No progress: make sure the cluster can hear us, then back off.
			if fle.cm.HaveDelivered() {
				fle.sendNotifications()
			} else {
				fle.cm.ConnectAll()
			}
			notTimeout = fle.params.NextNotificationInterval(notTimeout)
			fle.log.Debug("notification timeout",
				zap.Duration("notTimeout", notTimeout),
			)

			if qv := fle.self.QuorumVerifier(); qv != nil &&
				qv.RevalidateVoteSet(voteSet, notTimeout != fle.params.MinNotificationInterval) {
				end := fle.currentProposal()
				fle.setPeerState(end.Leader, voteSet)
				fle.leaveInstance(&end)
				return &end, nil
			}
			continue
		}
		fle.metrics.notificationsReceived.Inc()

		if !fle.validVoter(n.SID) || !fle.validVoter(n.Leader) {
			fle.log.Warn("ignoring notification from outside the voting view",
				zap.Int64("sid", int64(n.SID)),
				zap.Int64("leader", int64(n.Leader)),
			)
			fle.metrics.notificationsDropped.Inc()
			continue
		}

		switch n.State {
		case vote.Observing:
			fle.log.Debug("ignoring notification from observer",
				zap.Int64("sid", int64(n.SID)),
			)

		case vote.Looking:
			if initZxid == vote.NoHistory || n.Zxid == vote.NoHistory {
				fle.log.Debug("ignoring notification without history",
					zap.Stringer("zxid", n.Zxid),
				)
				continue
			}
			switch {
			case n.ElectionEpoch > fle.logicalClock.Load():
				fle.logicalClock.Store(n.ElectionEpoch)
				fle.metrics.logicalClock.Set(float64(n.ElectionEpoch))
				clear(recvset)
				if fle.totalOrderPredicate(n.Leader, n.Zxid, n.PeerEpoch, initID, initZxid, initEpoch) {
					fle.updateProposal(n.Leader, n.Zxid, n.PeerEpoch)
				} else {
					fle.updateProposal(initID, initZxid, initEpoch)
				}
				fle.sendNotifications()
			case n.ElectionEpoch < fle.logicalClock.Load():
				fle.log.Debug("dropping notification from a past election epoch",
					zap.Int64("electionEpoch", n.ElectionEpoch),
					zap.Int64("logicalClock", fle.logicalClock.Load()),
				)
				continue
			default:
				cur := fle.Vote()
				if fle.totalOrderPredicate(n.Leader, n.Zxid, n.PeerEpoch, cur.Leader, cur.Zxid, cur.PeerEpoch) {
					fle.updateProposal(n.Leader, n.Zxid, n.PeerEpoch)
					fle.sendNotifications()
				}
			}

			recvset[n.SID] = n.Vote()
			voteSet = fle.voteTracker(recvset, fle.currentProposal())
			if voteSet.HasAllQuorums() {
				// Drain for a short while: a better vote still in flight
				// restarts the tally instead of losing the election to it.
				restart := false
				for {
					nn, taken := fle.recvq.Take(fle.params.FinalizeWait)
					if !taken {
						break
					}
					cur := fle.Vote()
					if fle.totalOrderPredicate(nn.Leader, nn.Zxid, nn.PeerEpoch, cur.Leader, cur.Zxid, cur.PeerEpoch) {
						fle.recvq.Offer(nn)
						restart = true
						break
					}
				}
				if !restart {
					end := fle.currentProposal()
					fle.setPeerState(end.Leader, voteSet)
					fle.leaveInstance(&end)
					return &end, nil
				}
			}

		case vote.Following:
			if end := fle.receivedFollowingNotification(recvset, outofelection, n); end != nil {
				return end, nil
			}

		case vote.Leading:
			if end := fle.receivedLeadingNotification(recvset, outofelection, voteSet, n); end != nil {
				return end, nil
			}
		}
	}
	return nil, nil
}

// receivedFollowingNotification handles a vote from a peer that already
// follows a leader. It returns the final vote when the leader is certain
// enough to join.
func (fle *FastLeaderElection) receivedFollowingNotification(
	recvset, outofelection map[vote.ServerID]vote.Vote,
	n vote.Notification,
) *vote.Vote {
	if n.ElectionEpoch == fle.logicalClock.Load() {
		recvset[n.SID] = n.StatefulVote()
		vs := fle.voteTracker(recvset, n.StatefulVote())
		if vs.HasAllQuorums() && fle.checkLeader(recvset, n.Leader, n.ElectionEpoch) {
			fle.setPeerState(n.Leader, vs)
			end := vote.Vote{Leader: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch}
			fle.leaveInstance(&end)
			return &end
		}
	}

	// Before joining an established ensemble, verify that a majority is
	// following the same leader.
	outofelection[n.SID] = n.StatefulVote()
	vs := fle.voteTracker(outofelection, n.StatefulVote())
	if vs.HasAllQuorums() && fle.checkLeader(outofelection, n.Leader, n.ElectionEpoch) {
		fle.mu.Lock()
		fle.logicalClock.Store(n.ElectionEpoch)
		fle.mu.Unlock()
		fle.metrics.logicalClock.Set(float64(n.ElectionEpoch))
		fle.setPeerState(n.Leader, vs)
		end := vote.Vote{Leader: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch}
		fle.leaveInstance(&end)
		return &end
	}
	return nil
}

// receivedLeadingNotification handles a vote from a peer that claims to lead.
func (fle *FastLeaderElection) receivedLeadingNotification(
	recvset, outofelection map[vote.ServerID]vote.Vote,
	voteSet *quorum.Tracker,
	n vote.Notification,
) *vote.Vote {
	if end := fle.receivedFollowingNotification(recvset, outofelection, n); end != nil {
		return end
	}

	// AskOracle returning false means the oracle granted the remote leader
	// the progress token; follow it. The polarity is part of the oracle
	// contract.
	if qv := fle.self.QuorumVerifier(); qv != nil && qv.NeedOracle() && !qv.AskOracle() {
		fle.setPeerState(n.Leader, voteSet)
		end := vote.Vote{Leader: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch}
		fle.leaveInstance(&end)
		return &end
	}
	return nil
}

// Shutdown halts the election, its workers and the connection manager.
func (fle *FastLeaderElection) Shutdown() {
	if !fle.stop.CompareAndSwap(false, true) {
		return
	}
	fle.log.Info("shutting down leader election")

	fle.mu.Lock()
	fle.proposedLeader = -1
	fle.proposedZxid = -1
	fle.proposedEpoch = -1
	fle.mu.Unlock()

	fle.leadingMu.Lock()
	fle.leadingVoteSet = nil
	fle.leadingMu.Unlock()

	fle.sendq.Close()
	fle.recvq.Close()
	fle.cm.Halt()
}

// ShuttingDown reports whether a reconfiguration forced this election down.
// The host peer re-enters LookForLeader with a fresh election when set.
func (fle *FastLeaderElection) ShuttingDown() bool {
	return fle.shuttingDown.Load()
}

// Vote returns the current proposal.
func (fle *FastLeaderElection) Vote() vote.Vote {
	fle.mu.Lock()
	defer fle.mu.Unlock()
	return vote.Vote{
		Leader:    fle.proposedLeader,
		Zxid:      fle.proposedZxid,
		PeerEpoch: fle.proposedEpoch,
	}
}

// LogicalClock returns the current election epoch.
func (fle *FastLeaderElection) LogicalClock() int64 {
	return fle.logicalClock.Load()
}

// currentProposal is the proposal stamped with the current election epoch,
// the form used for tallying and as the final vote.
func (fle *FastLeaderElection) currentProposal() vote.Vote {
	fle.mu.Lock()
	defer fle.mu.Unlock()
	return vote.Vote{
		Leader:        fle.proposedLeader,
		Zxid:          fle.proposedZxid,
		ElectionEpoch: fle.logicalClock.Load(),
		PeerEpoch:     fle.proposedEpoch,
	}
}

func (fle *FastLeaderElection) updateProposal(leader vote.ServerID, zxid vote.Zxid, epoch int64) {
	fle.mu.Lock()
	defer fle.mu.Unlock()
	fle.log.Debug("updating proposal",
		zap.Int64("leader", int64(leader)),
		zap.Stringer("zxid", zxid),
		zap.Int64("peerEpoch", epoch),
	)
	fle.proposedLeader = leader
	fle.proposedZxid = zxid
	fle.proposedEpoch = epoch
}

// sendNotifications queues the current proposal for every voter in the
// current and next configurations.
func (fle *FastLeaderElection) sendNotifications() {
	proposal := fle.currentProposal()
	cfg := fle.configBytes()
	for _, sid := range fle.self.CurrentAndNextConfigVoters() {
		fle.sendq.Offer(vote.ToSend{
			SID:           sid,
			Leader:        proposal.Leader,
			Zxid:          proposal.Zxid,
			ElectionEpoch: proposal.ElectionEpoch,
			PeerEpoch:     proposal.PeerEpoch,
			State:         vote.Looking,
			Config:        cfg,
		})
	}
}

// totalOrderPredicate reports whether the new candidate beats the current one.
// Candidates without voting weight never win; otherwise the order is
// lexicographic on (peerEpoch, zxid, serverId).
func (fle *FastLeaderElection) totalOrderPredicate(
	newID vote.ServerID, newZxid vote.Zxid, newEpoch int64,
	curID vote.ServerID, curZxid vote.Zxid, curEpoch int64,
) bool {
	qv := fle.self.QuorumVerifier()
	if qv == nil || qv.Weight(newID) == 0 {
		return false
	}
	return newEpoch > curEpoch ||
		(newEpoch == curEpoch &&
			(newZxid > curZxid ||
				(newZxid == curZxid && newID > curID)))
}

// voteTracker tallies [votes] matching [target] against the current verifier
// and, during reconfiguration, the newer proposed verifier as well.
func (fle *FastLeaderElection) voteTracker(votes map[vote.ServerID]vote.Vote, target vote.Vote) *quorum.Tracker {
	verifiers := make([]quorum.Verifier, 0, 2)
	if qv := fle.self.QuorumVerifier(); qv != nil {
		verifiers = append(verifiers, qv)
		if next := fle.self.LastSeenQuorumVerifier(); next != nil && next.Version() > qv.Version() {
			verifiers = append(verifiers, next)
		}
	}
	t := quorum.NewTracker(verifiers...)
	for sid, v := range votes {
		if target.TallyEquals(v) {
			t.AddAck(sid)
		}
	}
	return t
}

// checkLeader guards against electing a peer whom others still remember as
// leader but who no longer is one: a remote leader must be seen LEADING, and
// a claim that we lead only counts within our own election instance.
func (fle *FastLeaderElection) checkLeader(votes map[vote.ServerID]vote.Vote, leader vote.ServerID, electionEpoch int64) bool {
	if leader != fle.self.ID() {
		v, ok := votes[leader]
		if !ok {
			return false
		}
		return v.State == vote.Leading
	}
	return fle.logicalClock.Load() == electionEpoch
}

// setPeerState transitions the host peer into its post-election role.
func (fle *FastLeaderElection) setPeerState(proposedLeader vote.ServerID, voteSet *quorum.Tracker) {
	state := vote.Following
	switch {
	case proposedLeader == fle.self.ID():
		state = vote.Leading
	case fle.self.LearnerType() != peer.Participant:
		state = vote.Observing
	}
	fle.self.SetState(state)
	if state == vote.Leading {
		fle.metrics.leaderElections.Inc()
		fle.leadingMu.Lock()
		fle.leadingVoteSet = voteSet
		fle.leadingMu.Unlock()
	}
}

func (fle *FastLeaderElection) leaveInstance(v *vote.Vote) {
	fle.log.Info("leaving election instance",
		zap.Int64("leader", int64(v.Leader)),
		zap.Stringer("zxid", v.Zxid),
		zap.Int64("electionEpoch", v.ElectionEpoch),
		zap.Stringer("state", fle.self.State()),
	)
	fle.recvq.Clear()
}

// validVoter reports whether [sid] belongs to the current or next voting
// configuration.
func (fle *FastLeaderElection) validVoter(sid vote.ServerID) bool {
	for _, voter := range fle.self.CurrentAndNextConfigVoters() {
		if voter == sid {
			return true
		}
	}
	return false
}

func (fle *FastLeaderElection) configBytes() []byte {
	qv := fle.self.QuorumVerifier()
	if qv == nil {
		return nil
	}
	return []byte(qv.String())
}

func (fle *FastLeaderElection) initID() vote.ServerID {
	qv := fle.self.QuorumVerifier()
	if qv == nil {
		return vote.NoServer
	}
	if _, ok := qv.VotingMembers()[fle.self.ID()]; ok {
		return fle.self.ID()
	}
	return vote.NoServer
}

func (fle *FastLeaderElection) initZxid() vote.Zxid {
	if fle.self.LearnerType() == peer.Participant {
		return fle.self.LastLoggedZxid()
	}
	return vote.Zxid(math.MinInt64)
}

func (fle *FastLeaderElection) initEpoch() (int64, error) {
	if fle.self.LearnerType() != peer.Participant {
		return vote.NoEpoch, nil
	}
	epoch, err := fle.self.CurrentEpoch()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEpochUnreadable, err)
	}
	return epoch, nil
}
