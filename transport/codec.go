// Package transport carries raftpb.Message envelopes between peers over
// gRPC. There is no .proto schema: Message already has its own wire
// encoding (see the wire and raftpb packages), so the gRPC layer is
// reduced to framing and a round-trip RPC, with a raw-byte codec
// standing in for the generated marshaller.
package transport

import "fmt"

// wireBytes is the request/response type every Step call exchanges: an
// already wire-runtime-encoded Message, opaque to gRPC itself.
type wireBytes []byte

// rawCodec hands gRPC's wire bytes straight through, since payloads are
// already encoded by raftpb.EncodeMessage/DecodeMessageBytes.
type rawCodec struct{}

func (rawCodec) Name() string { return "raftwire" }

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	b, ok := v.(wireBytes)
	if !ok {
		return nil, fmt.Errorf("transport: rawCodec cannot marshal %T", v)
	}
	return b, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	p, ok := v.(*wireBytes)
	if !ok {
		return fmt.Errorf("transport: rawCodec cannot unmarshal into %T", v)
	}
	*p = append(wireBytes(nil), data...)
	return nil
}
