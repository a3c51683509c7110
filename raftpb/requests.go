package raftpb

import (
	"fmt"

	"github.com/lattice-raft/raft/wire"
)

// AppendEntriesReq is sent by a leader to replicate log entries (or, with
// Entries empty, as a heartbeat) and to piggyback its current ReadID so
// followers can later confirm linearizable reads.
type AppendEntriesReq struct {
	Term          Term
	LeaderID      NodeID
	PrevLogIndex  Index
	PrevLogTerm   Term
	LeaderCommit  Index
	ReadID        ReadID
	Entries       []Entry
}

func (r AppendEntriesReq) String() string {
	return fmt.Sprintf("app(%d.%d p%d.%d lc%d r%d %v)",
		uint64(r.Term), uint64(r.LeaderID), uint64(r.PrevLogIndex), uint64(r.PrevLogTerm),
		uint64(r.LeaderCommit), uint64(r.ReadID), r.Entries)
}

var appendEntriesReqWords = wireWords{data: 6, pointer: 1}

func (r AppendEntriesReq) buildInto(b wire.UntypedStructBuilder) {
	b.SetU64(wordU64(0), uint64(r.Term))
	b.SetU64(wordU64(1), uint64(r.LeaderID))
	b.SetU64(wordU64(2), uint64(r.PrevLogIndex))
	b.SetU64(wordU64(3), uint64(r.PrevLogTerm))
	b.SetU64(wordU64(4), uint64(r.LeaderCommit))
	b.SetU64(wordU64(5), uint64(r.ReadID))
	BuildEntriesList(b, wordU64(0), r.Entries)
}

func decodeAppendEntriesReq(u wire.UntypedStruct) (AppendEntriesReq, error) {
	entries, err := DecodeEntriesList(u, wordU64(0))
	if err != nil {
		return AppendEntriesReq{}, err
	}
	return AppendEntriesReq{
		Term:         Term(u.U64(wordU64(0))),
		LeaderID:     NodeID(u.U64(wordU64(1))),
		PrevLogIndex: Index(u.U64(wordU64(2))),
		PrevLogTerm:  Term(u.U64(wordU64(3))),
		LeaderCommit: Index(u.U64(wordU64(4))),
		ReadID:       ReadID(u.U64(wordU64(5))),
		Entries:      entries,
	}, nil
}

// AppendEntriesRes is the follower's reply: Success false means the
// leader should retry with an earlier PrevLogIndex. Index and ReadID are
// this implementation's extensions (the original protocol's Index and
// ReadID echo, used to advance commit/read state without extra RPCs).
type AppendEntriesRes struct {
	Term    Term
	Success bool
	Index   Index
	ReadID  ReadID
}

func (r AppendEntriesRes) String() string {
	return fmt.Sprintf("appRes(%d r%d success=%v)", uint64(r.Term), uint64(r.ReadID), r.Success)
}

var appendEntriesResWords = wireWords{data: 4, pointer: 0}

func (r AppendEntriesRes) buildInto(b wire.UntypedStructBuilder) {
	b.SetU64(wordU64(0), uint64(r.Term))
	b.SetU64(wordU64(1), boolToU64(r.Success))
	b.SetU64(wordU64(2), uint64(r.Index))
	b.SetU64(wordU64(3), uint64(r.ReadID))
}

func decodeAppendEntriesRes(u wire.UntypedStruct) (AppendEntriesRes, error) {
	return AppendEntriesRes{
		Term:    Term(u.U64(wordU64(0))),
		Success: u64ToBool(u.U64(wordU64(1))),
		Index:   Index(u.U64(wordU64(2))),
		ReadID:  ReadID(u.U64(wordU64(3))),
	}, nil
}

// RequestVoteReq is sent by a candidate to request a vote.
type RequestVoteReq struct {
	Term         Term
	CandidateID  NodeID
	LastLogIndex Index
	LastLogTerm  Term
}

func (r RequestVoteReq) String() string {
	return fmt.Sprintf("vote(%d p%d.%d candidate=%d)", uint64(r.Term), uint64(r.LastLogIndex), uint64(r.LastLogTerm), uint64(r.CandidateID))
}

var requestVoteReqWords = wireWords{data: 4, pointer: 0}

func (r RequestVoteReq) buildInto(b wire.UntypedStructBuilder) {
	b.SetU64(wordU64(0), uint64(r.Term))
	b.SetU64(wordU64(1), uint64(r.CandidateID))
	b.SetU64(wordU64(2), uint64(r.LastLogIndex))
	b.SetU64(wordU64(3), uint64(r.LastLogTerm))
}

func decodeRequestVoteReq(u wire.UntypedStruct) (RequestVoteReq, error) {
	return RequestVoteReq{
		Term:         Term(u.U64(wordU64(0))),
		CandidateID:  NodeID(u.U64(wordU64(1))),
		LastLogIndex: Index(u.U64(wordU64(2))),
		LastLogTerm:  Term(u.U64(wordU64(3))),
	}, nil
}

// RequestVoteRes is a candidate's vote tally input.
type RequestVoteRes struct {
	Term        Term
	VoteGranted bool
}

func (r RequestVoteRes) String() string {
	return fmt.Sprintf("voteRes(%d granted=%v)", uint64(r.Term), r.VoteGranted)
}

var requestVoteResWords = wireWords{data: 2, pointer: 0}

func (r RequestVoteRes) buildInto(b wire.UntypedStructBuilder) {
	b.SetU64(wordU64(0), uint64(r.Term))
	b.SetU64(wordU64(1), boolToU64(r.VoteGranted))
}

func decodeRequestVoteRes(u wire.UntypedStruct) (RequestVoteRes, error) {
	return RequestVoteRes{
		Term:        Term(u.U64(wordU64(0))),
		VoteGranted: u64ToBool(u.U64(wordU64(1))),
	}, nil
}

// StartElectionReq is a local timer event, shaped as a message so it can
// flow through the same InputMessage dispatch as everything else.
type StartElectionReq struct {
	Term Term
}

func (r StartElectionReq) String() string { return fmt.Sprintf("startElection(%d)", uint64(r.Term)) }

var startElectionReqWords = wireWords{data: 1, pointer: 0}

func (r StartElectionReq) buildInto(b wire.UntypedStructBuilder) {
	b.SetU64(wordU64(0), uint64(r.Term))
}

func decodeStartElectionReq(u wire.UntypedStruct) (StartElectionReq, error) {
	return StartElectionReq{Term: Term(u.U64(wordU64(0)))}, nil
}

type wireWords struct {
	data    wire.NumWords
	pointer wire.NumWords
}
