package raftpb

import (
	"reflect"
	"testing"

	"github.com/lattice-raft/raft/wire"
)

func TestMessageRoundTripAppendEntries(t *testing.T) {
	msg := NewAppendEntriesReqMessage(1, 2, AppendEntriesReq{
		Term:         5,
		LeaderID:     1,
		PrevLogIndex: 10,
		PrevLogTerm:  4,
		LeaderCommit: 9,
		ReadID:       3,
		Entries: []Entry{
			{Term: 5, Index: 11, Payload: []byte("abc")},
			{Term: 5, Index: 12, Payload: []byte("defgh")},
		},
	})

	buf, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	got, err := DecodeMessageBytes(buf)
	if err != nil {
		t.Fatalf("DecodeMessageBytes: %v", err)
	}
	if !reflect.DeepEqual(msg, got) {
		t.Fatalf("round trip mismatch:\n  sent: %+v\n  got:  %+v", msg, got)
	}
}

func TestMessageRoundTripEachKind(t *testing.T) {
	cases := []Message{
		NewAppendEntriesResMessage(1, 2, AppendEntriesRes{Term: 3, Success: true, Index: 7, ReadID: 2}),
		NewRequestVoteReqMessage(1, 2, RequestVoteReq{Term: 3, CandidateID: 1, LastLogIndex: 6, LastLogTerm: 2}),
		NewRequestVoteResMessage(1, 2, RequestVoteRes{Term: 3, VoteGranted: false}),
		NewStartElectionReqMessage(1, 1, StartElectionReq{Term: 4}),
	}
	for _, msg := range cases {
		buf, err := EncodeMessage(msg)
		if err != nil {
			t.Fatalf("EncodeMessage(%v): %v", msg.Kind, err)
		}
		got, err := DecodeMessageBytes(buf)
		if err != nil {
			t.Fatalf("DecodeMessageBytes(%v): %v", msg.Kind, err)
		}
		if !reflect.DeepEqual(msg, got) {
			t.Fatalf("round trip mismatch for %v:\n  sent: %+v\n  got:  %+v", msg.Kind, msg, got)
		}
	}
}

func TestDecodeMessageUnknownKind(t *testing.T) {
	// Hand-build a message whose discriminant names no variant this
	// binary knows about, simulating an RPC from a newer schema version.
	b := wire.NewUntypedStructBuilder(messageDataWords, messagePointerWords)
	b.SetU64(wordU64(0), 1)
	b.SetU64(wordU64(1), 2)
	b.SetU16(wordU16(2), 999)

	buf := wire.EncodeOfficial(b.Finalize())
	decodedU, err := wire.DecodeOfficial(buf)
	if err != nil {
		t.Fatalf("DecodeOfficial: %v", err)
	}
	if _, err := DecodeMessage(decodedU); err == nil {
		t.Fatalf("expected unknown-discriminant error")
	} else if _, ok := err.(*wire.UnknownDiscriminant); !ok {
		t.Fatalf("expected *wire.UnknownDiscriminant, got %T: %v", err, err)
	}
}
