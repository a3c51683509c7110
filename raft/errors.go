package raft

import (
	"fmt"

	"github.com/lattice-raft/raft/raftpb"
)

// NotLeaderError is returned for a Write or Read submitted to a node that
// cannot currently serve it. Hint names a node more likely to be leader,
// when one is known: the node a Candidate voted for, or the leader a
// Follower last heard from. It is nil when no better guess exists (a
// Candidate that hasn't voted yet, or a Follower that has never heard
// from a leader).
type NotLeaderError struct {
	Hint *raftpb.NodeID
}

func (e *NotLeaderError) Error() string {
	if e.Hint == nil {
		return "raft: not leader"
	}
	return fmt.Sprintf("raft: not leader, try %v", *e.Hint)
}
