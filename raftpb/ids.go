// Package raftpb defines the wire-level message types exchanged between
// raft peers: log entries, RPC requests/responses, and the Message
// envelope that carries them. Every type here round-trips through the
// wire package rather than a generated marshaller, since wire is the
// schema runtime this module standardizes on.
package raftpb

import "fmt"

// Term is a Raft term number.
type Term uint64

func (t Term) String() string { return fmt.Sprintf("t%d", uint64(t)) }

// Index is a one-based Raft log index. Index 0 names "before the first
// entry" and is never the index of a real entry.
type Index uint64

// Add returns the index n entries later.
func (i Index) Add(n uint64) Index { return Index(uint64(i) + n) }

func (i Index) String() string { return fmt.Sprintf("i%d", uint64(i)) }

// NodeID uniquely identifies a member of a raft group. A node that loses
// its persisted state must restart under a new NodeID rather than reuse
// its old one.
type NodeID uint64

func (n NodeID) String() string { return fmt.Sprintf("n%d", uint64(n)) }

// ReadID orders linearizable read requests within a leader's term.
type ReadID uint64

func (r ReadID) String() string { return fmt.Sprintf("r%d", uint64(r)) }
