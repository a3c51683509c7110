package raft

import (
	"context"
	"testing"
	"time"

	"github.com/lattice-raft/raft/raftpb"
	"github.com/stretchr/testify/require"
)

func findMessage(out []Output, dest raftpb.NodeID, kind raftpb.PayloadKind) (raftpb.Message, bool) {
	for _, o := range out {
		if om, ok := o.(OutputMessage); ok && om.Message.Dest == dest && om.Message.Kind == kind {
			return om.Message, true
		}
	}
	return raftpb.Message{}, false
}

func TestSingleNodeElectsItselfImmediately(t *testing.T) {
	m, _ := New(1, []raftpb.NodeID{1})
	require.Equal(t, RoleLeader, m.Role())
}

func TestThreeNodeElection(t *testing.T) {
	m, out := New(1, []raftpb.NodeID{1, 2, 3})
	require.Equal(t, RoleCandidate, m.Role())

	req, ok := findMessage(out, 2, raftpb.PayloadRequestVoteReq)
	require.True(t, ok)
	require.Equal(t, raftpb.Term(1), req.RequestVoteReq.Term)

	out = m.Step(InputMessage{raftpb.NewRequestVoteResMessage(2, 1, raftpb.RequestVoteRes{Term: 1, VoteGranted: true})})
	require.Equal(t, RoleLeader, m.Role())

	_, ok = findMessage(out, 2, raftpb.PayloadAppendEntriesReq)
	require.True(t, ok, "becoming leader should immediately heartbeat")
}

func leaderOf3(t *testing.T) *Machine {
	t.Helper()
	m, _ := New(1, []raftpb.NodeID{1, 2, 3})
	m.Step(InputMessage{raftpb.NewRequestVoteResMessage(2, 1, raftpb.RequestVoteRes{Term: 1, VoteGranted: true})})
	require.Equal(t, RoleLeader, m.Role())
	return m
}

func TestWriteCommitsOnMajorityAck(t *testing.T) {
	m := leaderOf3(t)

	future := NewWriteFuture()
	out := m.Step(InputWrite{WriteReq{Payload: []byte("hello")}, future})

	var persistReq PersistReq
	for _, o := range out {
		if p, ok := o.(OutputPersistReq); ok {
			persistReq = p.Req
		}
	}
	require.Len(t, persistReq.Entries, 1)

	req, ok := findMessage(out, 2, raftpb.PayloadAppendEntriesReq)
	require.True(t, ok)
	readID := req.AppendEntriesReq.ReadID

	// The leader persists its own write locally.
	m.Step(InputPersistRes{PersistRes{LeaderID: 1, ReadID: readID, LogIndex: 1}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	select {
	case <-future.ch:
		t.Fatalf("write resolved before a majority acked")
	default:
	}

	// One follower ack plus the leader's own is a majority of 3.
	m.Step(InputMessage{raftpb.NewAppendEntriesResMessage(2, 1, raftpb.AppendEntriesRes{
		Term: 1, Success: true, Index: 1, ReadID: readID,
	})})

	res, err := future.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, raftpb.Index(1), res.Index)
	require.Equal(t, raftpb.Term(1), res.Term)
}

func TestReadWaitsForQuorumBeforeAskingStateMachine(t *testing.T) {
	m := leaderOf3(t)

	future := NewReadFuture()
	out := m.Step(InputRead{ReadReq{Payload: []byte("get x")}, future})
	for _, o := range out {
		_, isReadReq := o.(OutputReadStateMachineReq)
		require.False(t, isReadReq, "read must not be served before any peer has confirmed this term")
	}

	req, ok := findMessage(out, 2, raftpb.PayloadAppendEntriesReq)
	require.True(t, ok)
	ackReadID := req.AppendEntriesReq.ReadID

	out = m.Step(InputMessage{raftpb.NewAppendEntriesResMessage(2, 1, raftpb.AppendEntriesRes{
		Term: 1, Success: true, Index: 0, ReadID: ackReadID,
	})})

	var pendingReadID raftpb.ReadID
	var sawReadReq bool
	for _, o := range out {
		if rsm, ok := o.(OutputReadStateMachineReq); ok {
			sawReadReq = true
			pendingReadID = rsm.Req.ReadID
		}
	}
	require.True(t, sawReadReq, "majority confirmation should release the pending read")

	m.Step(InputReadStateMachineRes{ReadStateMachineRes{Index: 0, ReadID: pendingReadID, Payload: []byte("42")}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	res, err := future.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("42"), res.Payload)
}

func TestFollowerWriteReturnsNotLeaderWithHint(t *testing.T) {
	m, _ := New(1, []raftpb.NodeID{1, 2, 3})
	m.Step(InputMessage{raftpb.NewAppendEntriesReqMessage(2, 1, raftpb.AppendEntriesReq{
		Term: 5, LeaderID: 2,
	})})
	require.Equal(t, RoleFollower, m.Role())

	future := NewWriteFuture()
	m.write(new([]Output), WriteReq{Payload: []byte("x")}, future)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err := future.Wait(ctx)
	require.Error(t, err)
	var nle *NotLeaderError
	require.ErrorAs(t, err, &nle)
	require.NotNil(t, nle.Hint)
	require.Equal(t, raftpb.NodeID(2), *nle.Hint)
}

func TestHigherTermStepsLeaderDown(t *testing.T) {
	m := leaderOf3(t)

	future := NewWriteFuture()
	var out []Output
	m.leaderWrite(&out, []pendingWrite{{payload: []byte("pending"), future: future}})

	m.Step(InputMessage{raftpb.NewAppendEntriesReqMessage(3, 1, raftpb.AppendEntriesReq{
		Term: 99, LeaderID: 3,
	})})
	require.Equal(t, RoleFollower, m.Role())

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err := future.Wait(ctx)
	require.Error(t, err, "writes buffered while leader must fail once the role is lost")
}

func TestElectionTimeoutStartsNewElection(t *testing.T) {
	m, _ := New(1, []raftpb.NodeID{1, 2, 3})
	start := time.Now()
	m.Step(InputTick{start})

	termBefore := m.currentTerm
	out := m.Step(InputTick{start.Add(m.cfg.ElectionTimeout * 2)})
	require.Greater(t, m.currentTerm, termBefore)

	_, ok := findMessage(out, 2, raftpb.PayloadRequestVoteReq)
	require.True(t, ok)
}
