package main

import (
	"context"
	"sync"
	"time"

	"github.com/lattice-raft/raft/internal/log"
	"github.com/lattice-raft/raft/raft"
	"github.com/lattice-raft/raft/raftpb"
	"github.com/lattice-raft/raft/transport"
)

// driver serializes Step calls on a Machine and carries out the Output
// side effects it returns: sending messages to peers, persisting
// entries (an in-memory stand-in here; a real deployment supplies its
// own durable store), and applying committed entries. Grounded on the
// shape of the teacher's daemon event loop, reduced to what this
// module's pure step function needs since there's no etcd raft.Node or
// WAL underneath it here.
type driver struct {
	mu      sync.Mutex
	machine *raft.Machine
	peers   map[raftpb.NodeID]*transport.Peer

	// log is a process-local stand-in for durable entry storage, just
	// enough to answer ReadLogReq when a follower falls behind. A real
	// deployment persists PersistReq to disk and serves ReadLogReq from
	// there instead.
	log map[raftpb.Index]raftpb.Entry
}

func newDriver(self raftpb.NodeID, nodes []raftpb.NodeID, opts ...raft.Option) *driver {
	m, out := raft.New(self, nodes, opts...)
	d := &driver{
		machine: m,
		peers:   make(map[raftpb.NodeID]*transport.Peer),
		log:     make(map[raftpb.Index]raftpb.Entry),
	}
	d.handle(out)
	return d
}

func (d *driver) addPeer(id raftpb.NodeID, addr string) error {
	p, err := transport.NewPeer(context.Background(), id, addr, transport.Dial, d)
	if err != nil {
		return err
	}
	d.peers[id] = p
	return nil
}

// ReportUnreachable satisfies transport.Reporter.
func (d *driver) ReportUnreachable(id raftpb.NodeID) {
	log.Debugf("raftd: peer %v unreachable", id)
}

func (d *driver) handleMessage(ctx context.Context, msg raftpb.Message) error {
	d.mu.Lock()
	out := d.machine.Step(raft.InputMessage{Message: msg})
	d.mu.Unlock()
	d.handle(out)
	return nil
}

func (d *driver) tickLoop(c <-chan time.Time) {
	for now := range c {
		d.mu.Lock()
		out := d.machine.Step(raft.InputTick{Now: now})
		d.mu.Unlock()
		d.handle(out)
	}
}

// handle carries out every Output a Step call produced. It must not
// hold d.mu, since sending to a peer can itself trigger a nested Step
// (persistRes/readLogRes) through handleMessage-style feedback.
func (d *driver) handle(out []raft.Output) {
	for _, o := range out {
		switch v := o.(type) {
		case raft.OutputMessage:
			d.send(v.Message)
		case raft.OutputPersistReq:
			d.persist(v.Req)
		case raft.OutputApplyReq:
			log.Debugf("raftd: apply through index %v", v.Index)
		case raft.OutputReadStateMachineReq:
			d.readStateMachine(v.Req)
		case raft.OutputReadLogReq:
			d.readLog(v.Req)
		}
	}
}

func (d *driver) send(msg raftpb.Message) {
	if msg.Dest == msg.Src {
		d.handleMessage(context.Background(), msg)
		return
	}
	p, ok := d.peers[msg.Dest]
	if !ok {
		return
	}
	if err := p.Send(msg); err != nil {
		log.Debugf("raftd: send to %v failed: %v", msg.Dest, err)
	}
}

func (d *driver) persist(req raft.PersistReq) {
	for _, e := range req.Entries {
		d.log[e.Index] = e
	}
	d.mu.Lock()
	out := d.machine.Step(raft.InputPersistRes{Res: raft.PersistRes{
		LeaderID: req.LeaderID, ReadID: req.ReadID, LogIndex: req.Entries[len(req.Entries)-1].Index,
	}})
	d.mu.Unlock()
	d.handle(out)
}

// readStateMachine would normally forward to the embedding application's
// state machine; this thin driver just echoes the request's payload
// back as the read's answer.
func (d *driver) readStateMachine(req raft.ReadStateMachineReq) {
	d.mu.Lock()
	out := d.machine.Step(raft.InputReadStateMachineRes{Res: raft.ReadStateMachineRes{
		Index: req.Index, ReadID: req.ReadID, Payload: req.Payload,
	}})
	d.mu.Unlock()
	d.handle(out)
}

func (d *driver) readLog(req raft.ReadLogReq) {
	var entries []raftpb.Entry
	for idx := req.FromIndex; ; idx++ {
		e, ok := d.log[idx]
		if !ok {
			break
		}
		entries = append(entries, e)
	}
	d.mu.Lock()
	out := d.machine.Step(raft.InputReadLogRes{Res: raft.ReadLogRes{
		Dest: req.Dest, FromIndex: req.FromIndex, Entries: entries,
	}})
	d.mu.Unlock()
	d.handle(out)
}

func (d *driver) Close() {
	d.machine.Shutdown()
	for _, p := range d.peers {
		p.Close()
	}
}
