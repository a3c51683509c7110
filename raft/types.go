package raft

import (
	"time"

	"github.com/lattice-raft/raft/raftpb"
)

// WriteReq is a client request to append payload to the replicated log.
type WriteReq struct {
	Payload []byte
}

// WriteRes reports where a write landed once committed.
type WriteRes struct {
	Term  raftpb.Term
	Index raftpb.Index
}

// ReadReq is a client request for a linearizable read. Payload is opaque
// to the Machine; it's forwarded verbatim to the state machine once the
// read is safe to serve.
type ReadReq struct {
	Payload []byte
}

// ReadRes carries the state machine's answer back to the caller.
type ReadRes struct {
	Term    raftpb.Term
	Index   raftpb.Index
	Payload []byte
}

// PersistReq asks the embedder to durably append Entries before the
// leader (or follower) that produced this output can act on them.
// LeaderID and ReadID round-trip back through PersistRes so the Machine
// can tell which batch was confirmed.
type PersistReq struct {
	LeaderID raftpb.NodeID
	ReadID   raftpb.ReadID
	Entries  []raftpb.Entry
}

// PersistRes confirms a PersistReq has been durably written. LogIndex is
// the index of the last entry in that batch.
type PersistRes struct {
	LeaderID raftpb.NodeID
	ReadID   raftpb.ReadID
	LogIndex raftpb.Index
}

// ReadStateMachineReq asks the embedder to apply the state machine as of
// Index and return whatever Payload's read describes. Only issued once a
// majority of the cluster has confirmed ReadID is safe to serve.
type ReadStateMachineReq struct {
	Index   raftpb.Index
	ReadID  raftpb.ReadID
	Payload []byte
}

// ReadStateMachineRes is the embedder's answer to a ReadStateMachineReq.
type ReadStateMachineRes struct {
	Index   raftpb.Index
	ReadID  raftpb.ReadID
	Payload []byte
}

// ReadLogReq asks the embedder to resend persisted entries to a follower
// whose log has fallen out of sync, starting at FromIndex. There's no
// equivalent request in the original: its AppendEntries-failure handling
// was never finished, and serving a lagging follower requires going back
// to whatever already durably stores old entries (the Machine itself
// only remembers compressed (term, index) history, not payloads).
type ReadLogReq struct {
	Dest      raftpb.NodeID
	FromIndex raftpb.Index
}

// ReadLogRes answers a ReadLogReq with the entries starting at FromIndex.
type ReadLogRes struct {
	Dest      raftpb.NodeID
	FromIndex raftpb.Index
	Entries   []raftpb.Entry
}

// Input is anything that can be stepped into a Machine.
type Input interface{ isInput() }

type InputWrite struct {
	Req    WriteReq
	Future *WriteFuture
}

type InputRead struct {
	Req    ReadReq
	Future *ReadFuture
}

type InputTick struct{ Now time.Time }

type InputMessage struct{ Message raftpb.Message }

type InputPersistRes struct{ Res PersistRes }

type InputReadStateMachineRes struct{ Res ReadStateMachineRes }

type InputReadLogRes struct{ Res ReadLogRes }

func (InputWrite) isInput()              {}
func (InputRead) isInput()               {}
func (InputTick) isInput()               {}
func (InputMessage) isInput()            {}
func (InputPersistRes) isInput()         {}
func (InputReadStateMachineRes) isInput() {}
func (InputReadLogRes) isInput()         {}

// Output is a side effect the embedder must carry out after a Step call.
type Output interface{ isOutput() }

type OutputMessage struct{ Message raftpb.Message }

type OutputPersistReq struct{ Req PersistReq }

type OutputApplyReq struct{ Index raftpb.Index }

type OutputReadStateMachineReq struct{ Req ReadStateMachineReq }

type OutputReadLogReq struct{ Req ReadLogReq }

func (OutputMessage) isOutput()           {}
func (OutputPersistReq) isOutput()        {}
func (OutputApplyReq) isOutput()          {}
func (OutputReadStateMachineReq) isOutput() {}
func (OutputReadLogReq) isOutput()        {}
