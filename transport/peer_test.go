package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lattice-raft/raft/raftpb"
	"github.com/stretchr/testify/require"
)

// stubConn records every Step call instead of touching the network. A
// plain struct substitutes for a generated mock here: Dialer returns a
// concrete *Client, and Peer only needs the small stepConn interface
// carved out of it, so there's nothing for github.com/golang/mock to
// attach to that isn't already this simple.
type stubConn struct {
	mu    sync.Mutex
	steps []raftpb.Message
	err   error
}

func (c *stubConn) Step(ctx context.Context, msg raftpb.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, msg)
	return c.err
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) seen() []raftpb.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]raftpb.Message(nil), c.steps...)
}

type fakeReporter struct {
	mu        sync.Mutex
	unreached []raftpb.NodeID
}

func (r *fakeReporter) ReportUnreachable(id raftpb.NodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unreached = append(r.unreached, id)
}

func (r *fakeReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.unreached)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func newTestPeer(id raftpb.NodeID, client stepConn, report Reporter) *Peer {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{
		id:     id,
		report: report,
		ctx:    ctx,
		cancel: cancel,
		msgc:   make(chan raftpb.Message, 64),
		done:   make(chan struct{}),
		client: client,
	}
	go p.run()
	return p
}

func TestPeerDeliversSendsInOrder(t *testing.T) {
	stub := &stubConn{}
	p := newTestPeer(2, stub, &fakeReporter{})
	defer p.Close()

	msg1 := raftpb.NewStartElectionReqMessage(1, 2, raftpb.StartElectionReq{Term: 1})
	msg2 := raftpb.NewStartElectionReqMessage(1, 2, raftpb.StartElectionReq{Term: 2})
	require.NoError(t, p.Send(msg1))
	require.NoError(t, p.Send(msg2))

	waitFor(t, func() bool { return len(stub.seen()) == 2 })
	seen := stub.seen()
	require.Equal(t, msg1, seen[0])
	require.Equal(t, msg2, seen[1])
	require.True(t, p.IsActive())
}

func TestPeerReportsUnreachableOnFailure(t *testing.T) {
	stub := &stubConn{err: context.DeadlineExceeded}
	reporter := &fakeReporter{}
	p := newTestPeer(3, stub, reporter)
	defer p.Close()

	require.NoError(t, p.Send(raftpb.NewStartElectionReqMessage(1, 3, raftpb.StartElectionReq{Term: 1})))

	waitFor(t, func() bool { return reporter.count() == 1 })
	require.False(t, p.IsActive())
}

func TestPeerSendAfterCloseErrors(t *testing.T) {
	p := newTestPeer(4, &stubConn{}, &fakeReporter{})
	require.NoError(t, p.Close())

	err := p.Send(raftpb.NewStartElectionReqMessage(1, 4, raftpb.StartElectionReq{Term: 1}))
	require.Error(t, err)
}
