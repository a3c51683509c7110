package raftpb

import (
	"fmt"

	"github.com/lattice-raft/raft/wire"
)

// PayloadKind discriminates the five RPC shapes an envelope can carry.
type PayloadKind uint16

const (
	PayloadAppendEntriesReq PayloadKind = iota
	PayloadAppendEntriesRes
	PayloadRequestVoteReq
	PayloadRequestVoteRes
	PayloadStartElectionReq
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadAppendEntriesReq:
		return "AppendEntriesReq"
	case PayloadAppendEntriesRes:
		return "AppendEntriesRes"
	case PayloadRequestVoteReq:
		return "RequestVoteReq"
	case PayloadRequestVoteRes:
		return "RequestVoteRes"
	case PayloadStartElectionReq:
		return "StartElectionReq"
	default:
		return "unknown"
	}
}

// PayloadMeta is the UnionMeta for Message's payload discriminant,
// exposed for diagnostics that want to render an unrecognized
// discriminant symbolically instead of failing outright.
var PayloadMeta = wire.UnionMeta{
	Name:       "Payload",
	DiscOffset: wordU16(2),
	Variants: map[wire.Discriminant]string{
		wire.Discriminant(PayloadAppendEntriesReq): "AppendEntriesReq",
		wire.Discriminant(PayloadAppendEntriesRes): "AppendEntriesRes",
		wire.Discriminant(PayloadRequestVoteReq):   "RequestVoteReq",
		wire.Discriminant(PayloadRequestVoteRes):   "RequestVoteRes",
		wire.Discriminant(PayloadStartElectionReq): "StartElectionReq",
	},
}

// Message is an RPC envelope. Exactly one of the typed payload fields is
// set, per Kind; this is the hand-written equivalent of a oneof, chosen
// over an interface{} payload so the raft package can switch on Kind
// without a type assertion.
type Message struct {
	Src  NodeID
	Dest NodeID
	Kind PayloadKind

	AppendEntriesReq *AppendEntriesReq
	AppendEntriesRes *AppendEntriesRes
	RequestVoteReq   *RequestVoteReq
	RequestVoteRes   *RequestVoteRes
	StartElectionReq *StartElectionReq
}

func (m Message) String() string {
	var payload fmt.Stringer
	switch m.Kind {
	case PayloadAppendEntriesReq:
		payload = *m.AppendEntriesReq
	case PayloadAppendEntriesRes:
		payload = *m.AppendEntriesRes
	case PayloadRequestVoteReq:
		payload = *m.RequestVoteReq
	case PayloadRequestVoteRes:
		payload = *m.RequestVoteRes
	case PayloadStartElectionReq:
		payload = *m.StartElectionReq
	default:
		return fmt.Sprintf("[%d->%d:<unknown kind %d>]", uint64(m.Src), uint64(m.Dest), m.Kind)
	}
	return fmt.Sprintf("[%d->%d:%v]", uint64(m.Src), uint64(m.Dest), payload)
}

func NewAppendEntriesReqMessage(src, dest NodeID, req AppendEntriesReq) Message {
	return Message{Src: src, Dest: dest, Kind: PayloadAppendEntriesReq, AppendEntriesReq: &req}
}

func NewAppendEntriesResMessage(src, dest NodeID, res AppendEntriesRes) Message {
	return Message{Src: src, Dest: dest, Kind: PayloadAppendEntriesRes, AppendEntriesRes: &res}
}

func NewRequestVoteReqMessage(src, dest NodeID, req RequestVoteReq) Message {
	return Message{Src: src, Dest: dest, Kind: PayloadRequestVoteReq, RequestVoteReq: &req}
}

func NewRequestVoteResMessage(src, dest NodeID, res RequestVoteRes) Message {
	return Message{Src: src, Dest: dest, Kind: PayloadRequestVoteRes, RequestVoteRes: &res}
}

func NewStartElectionReqMessage(src, dest NodeID, req StartElectionReq) Message {
	return Message{Src: src, Dest: dest, Kind: PayloadStartElectionReq, StartElectionReq: &req}
}

const (
	messageDataWords    = wire.NumWords(3)
	messagePointerWords = wire.NumWords(1)
)

// Build serializes m into a standalone wire message, suitable for
// EncodeOfficial/EncodeAlternate or embedding in a larger envelope.
func (m Message) Build() (wire.UntypedStructShared, error) {
	b := wire.NewUntypedStructBuilder(messageDataWords, messagePointerWords)
	b.SetU64(wordU64(0), uint64(m.Src))
	b.SetU64(wordU64(1), uint64(m.Dest))
	b.SetU16(wordU16(2), uint16(m.Kind))

	var payload wire.UntypedStructShared
	switch m.Kind {
	case PayloadAppendEntriesReq:
		pb := wire.NewUntypedStructBuilder(appendEntriesReqWords.data, appendEntriesReqWords.pointer)
		m.AppendEntriesReq.buildInto(pb)
		payload = pb.Finalize()
	case PayloadAppendEntriesRes:
		pb := wire.NewUntypedStructBuilder(appendEntriesResWords.data, appendEntriesResWords.pointer)
		m.AppendEntriesRes.buildInto(pb)
		payload = pb.Finalize()
	case PayloadRequestVoteReq:
		pb := wire.NewUntypedStructBuilder(requestVoteReqWords.data, requestVoteReqWords.pointer)
		m.RequestVoteReq.buildInto(pb)
		payload = pb.Finalize()
	case PayloadRequestVoteRes:
		pb := wire.NewUntypedStructBuilder(requestVoteResWords.data, requestVoteResWords.pointer)
		m.RequestVoteRes.buildInto(pb)
		payload = pb.Finalize()
	case PayloadStartElectionReq:
		pb := wire.NewUntypedStructBuilder(startElectionReqWords.data, startElectionReqWords.pointer)
		m.StartElectionReq.buildInto(pb)
		payload = pb.Finalize()
	default:
		return wire.UntypedStructShared{}, fmt.Errorf("raftpb: unbuildable payload kind %d", m.Kind)
	}
	b.SetStruct(wordU64(0), &payload)
	return b.Finalize(), nil
}

// DecodeMessage reads a Message out of u. An unrecognized Kind is
// reported as a *wire.UnknownDiscriminant error rather than a
// panic, so a node running an older binary can drop (and log) RPCs from a
// newer one instead of crashing.
func DecodeMessage(u wire.UntypedStruct) (Message, error) {
	m := Message{
		Src:  NodeID(u.U64(wordU64(0))),
		Dest: NodeID(u.U64(wordU64(1))),
		Kind: PayloadKind(u.U16(wordU16(2))),
	}
	payload, err := u.Struct(wordU64(0))
	if err != nil {
		return Message{}, err
	}
	switch m.Kind {
	case PayloadAppendEntriesReq:
		req, err := decodeAppendEntriesReq(payload)
		if err != nil {
			return Message{}, err
		}
		m.AppendEntriesReq = &req
	case PayloadAppendEntriesRes:
		res, err := decodeAppendEntriesRes(payload)
		if err != nil {
			return Message{}, err
		}
		m.AppendEntriesRes = &res
	case PayloadRequestVoteReq:
		req, err := decodeRequestVoteReq(payload)
		if err != nil {
			return Message{}, err
		}
		m.RequestVoteReq = &req
	case PayloadRequestVoteRes:
		res, err := decodeRequestVoteRes(payload)
		if err != nil {
			return Message{}, err
		}
		m.RequestVoteRes = &res
	case PayloadStartElectionReq:
		req, err := decodeStartElectionReq(payload)
		if err != nil {
			return Message{}, err
		}
		m.StartElectionReq = &req
	default:
		return Message{}, &wire.UnknownDiscriminant{Value: wire.Discriminant(m.Kind), Name: PayloadMeta.Name}
	}
	return m, nil
}

// EncodeMessage serializes m with the official stream framing.
func EncodeMessage(m Message) ([]byte, error) {
	shared, err := m.Build()
	if err != nil {
		return nil, err
	}
	return wire.EncodeOfficial(shared), nil
}

// DecodeMessageBytes is the inverse of EncodeMessage.
func DecodeMessageBytes(buf []byte) (Message, error) {
	u, err := wire.DecodeOfficial(buf)
	if err != nil {
		return Message{}, err
	}
	return DecodeMessage(u)
}
