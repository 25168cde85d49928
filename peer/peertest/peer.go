// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package peertest provides a configurable peer stub for election tests.
package peertest

import (
	"sync"

	"github.com/luxfi/election/peer"
	"github.com/luxfi/election/quorum"
	"github.com/luxfi/election/vote"
)

// Peer is a settable-field implementation of peer.Peer.
type Peer struct {
	mu sync.Mutex

	IDVal       vote.ServerID
	StateVal    vote.State
	LearnerVal  peer.Learner
	EpochVal    int64
	EpochErr    error
	LastZxidVal vote.Zxid

	Verifier     quorum.Verifier
	LastSeenQV   quorum.Verifier
	Voters       []vote.ServerID
	CommittedVal *vote.Vote

	// ReconfigCalls records every verifier handed to ProcessReconfig.
	ReconfigCalls []quorum.Verifier

	LeaderVal peer.LeaderHook
}

var _ peer.Peer = (*Peer)(nil)

func (p *Peer) ID() vote.ServerID {
	return p.IDVal
}

func (p *Peer) State() vote.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.StateVal
}

func (p *Peer) SetState(s vote.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StateVal = s
}

func (p *Peer) LearnerType() peer.Learner {
	return p.LearnerVal
}

func (p *Peer) CurrentEpoch() (int64, error) {
	return p.EpochVal, p.EpochErr
}

func (p *Peer) LastLoggedZxid() vote.Zxid {
	return p.LastZxidVal
}

func (p *Peer) QuorumVerifier() quorum.Verifier {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Verifier
}

func (p *Peer) LastSeenQuorumVerifier() quorum.Verifier {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.LastSeenQV
}

func (p *Peer) NoteQuorumVerifier(qv quorum.Verifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LastSeenQV != nil && qv.Version() <= p.LastSeenQV.Version() {
		return
	}
	p.LastSeenQV = qv
}

func (p *Peer) CurrentAndNextConfigVoters() []vote.ServerID {
	p.mu.Lock()
	defer p.mu.Unlock()
	voters := make([]vote.ServerID, len(p.Voters))
	copy(voters, p.Voters)
	return voters
}

func (p *Peer) CurrentVote() *vote.Vote {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CommittedVal == nil {
		return nil
	}
	v := *p.CommittedVal
	return &v
}

// SetCurrentVote records the committed vote.
func (p *Peer) SetCurrentVote(v vote.Vote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CommittedVal = &v
}

func (p *Peer) ProcessReconfig(qv quorum.Verifier) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReconfigCalls = append(p.ReconfigCalls, qv)
	changed := p.Verifier == nil || !p.Verifier.Equals(qv)
	p.Verifier = qv
	return changed
}

func (p *Peer) ConfigFromString(s string) (quorum.Verifier, error) {
	return quorum.ParseConfig(s)
}

func (p *Peer) Leader() peer.LeaderHook {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.LeaderVal
}

// SetLeader installs the leader hook.
func (p *Peer) SetLeader(lh peer.LeaderHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LeaderVal = lh
}

// LeaderRecorder is a LeaderHook that remembers what it was told.
type LeaderRecorder struct {
	mu          sync.Mutex
	LookingSids []vote.ServerID
	VoteSet     *quorum.Tracker
}

func (r *LeaderRecorder) ReportLookingSid(sid vote.ServerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LookingSids = append(r.LookingSids, sid)
}

func (r *LeaderRecorder) SetLeadingVoteSet(t *quorum.Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.VoteSet = t
}

// Looking returns the recorded looking sids.
func (r *LeaderRecorder) Looking() []vote.ServerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	sids := make([]vote.ServerID, len(r.LookingSids))
	copy(sids, r.LookingSids)
	return sids
}

// LeadingVoteSet returns the recorded tracker.
func (r *LeaderRecorder) LeadingVoteSet() *quorum.Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.VoteSet
}
