package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lattice-raft/raft/internal/log"
	"github.com/lattice-raft/raft/raftpb"
)

// Reporter learns about a peer connection's health, so the embedder can
// surface it (metrics, alerting) without Peer depending on anything
// beyond raftpb.
type Reporter interface {
	ReportUnreachable(id raftpb.NodeID)
}

// stepConn is what Peer needs from a Client. Tests substitute a fake
// implementation instead of dialing a real connection.
type stepConn interface {
	Step(ctx context.Context, msg raftpb.Message) error
	Close() error
}

// Peer owns one outbound connection to another cluster member: a
// buffered send queue drained by a single goroutine, with reconnect on
// Update and graceful drain on Close. Adapted from the teacher's
// membership.remote, generalized from etcd's raftpb.Message to this
// module's own Message type and from an injected Transport interface to
// this package's gRPC Client/Dialer pair.
type Peer struct {
	id      raftpb.NodeID
	dial    Dialer
	report  Reporter
	traceID string

	ctx    context.Context
	cancel context.CancelFunc
	msgc   chan raftpb.Message
	done   chan struct{}

	mu          sync.Mutex
	addr        string
	client      stepConn
	active      bool
	activeSince time.Time
}

// NewPeer dials addr and starts the background send loop. The caller
// must eventually call Close.
func NewPeer(ctx context.Context, id raftpb.NodeID, addr string, dial Dialer, report Reporter) (*Peer, error) {
	client, err := dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithCancel(ctx)
	p := &Peer{
		id:      id,
		dial:    dial,
		report:  report,
		traceID: uuid.NewString(),
		ctx:     pctx,
		cancel:  cancel,
		msgc:    make(chan raftpb.Message, 64),
		done:    make(chan struct{}),
		addr:    addr,
		client:  client,
	}
	go p.run()
	return p, nil
}

// Send enqueues msg for delivery. It never blocks: a full queue means
// the peer is overloaded or unreachable, so the message is dropped and
// reported rather than backing up the caller.
func (p *Peer) Send(msg raftpb.Message) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case p.msgc <- msg:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	default:
		return fmt.Errorf("transport: peer %v send queue full", p.id)
	}
}

// Update redials addr if it differs from the peer's current address.
func (p *Peer) Update(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addr == addr {
		return nil
	}
	client, err := p.dial(p.ctx, addr)
	if err != nil {
		return err
	}
	p.client.Close()
	p.client = client
	p.addr = addr
	return nil
}

// Address returns the peer's current dial address.
func (p *Peer) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// IsActive reports whether the most recent Step succeeded.
func (p *Peer) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Peer) setActive(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if active && !p.active {
		p.activeSince = time.Now()
	}
	if !active && p.active {
		p.activeSince = time.Time{}
	}
	p.active = active
}

func (p *Peer) currentClient() stepConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

func (p *Peer) step(ctx context.Context, msg raftpb.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := p.currentClient().Step(ctx, msg)
	if err != nil && p.report != nil {
		p.report.ReportUnreachable(p.id)
	}
	return err
}

func (p *Peer) run() {
	for {
		select {
		case msg := <-p.msgc:
			err := p.step(p.ctx, msg)
			if err != nil {
				log.Debugf("transport: peer %v trace %s step failed: %v", p.id, p.traceID, err)
			}
			p.setActive(err == nil)
		case <-p.ctx.Done():
			p.drain()
			close(p.done)
			return
		}
	}
}

// drain flushes whatever is already queued, best-effort, once the peer
// is being closed.
func (p *Peer) drain() {
	p.setActive(false)
	close(p.msgc)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for msg := range p.msgc {
		if err := p.step(ctx, msg); err != nil {
			log.Debugf("transport: peer %v dropped message draining: %v", p.id, err)
			return
		}
	}
}

// Close stops the send loop, drains pending messages best-effort, and
// closes the underlying connection.
func (p *Peer) Close() error {
	p.cancel()
	<-p.done
	return p.currentClient().Close()
}
