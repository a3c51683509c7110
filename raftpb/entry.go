package raftpb

import (
	"fmt"

	"github.com/lattice-raft/raft/wire"
)

// Entry is one record in a raft log: the term it was proposed in, its
// one-based index, and the opaque payload the replicated state machine
// will eventually apply.
type Entry struct {
	Term    Term
	Index   Index
	Payload []byte
}

func (e Entry) String() string {
	return fmt.Sprintf("(%d.%d %q)", uint64(e.Term), uint64(e.Index), e.Payload)
}

const (
	entryDataWords    = wire.NumWords(2)
	entryPointerWords = wire.NumWords(1)
)

func (e Entry) buildInto(b wire.UntypedStructBuilder) {
	b.SetU64(wordU64(0), uint64(e.Term))
	b.SetU64(wordU64(1), uint64(e.Index))
	b.SetBytes(wordU64(0), e.Payload) // pointer-section offset 0
}

// Build allocates a standalone struct builder for e; used when an Entry
// is the top-level message rather than an element of an entries list.
func (e Entry) Build() wire.UntypedStructShared {
	b := wire.NewUntypedStructBuilder(entryDataWords, entryPointerWords)
	e.buildInto(b)
	return b.Finalize()
}

// DecodeEntry reads an Entry out of u.
func DecodeEntry(u wire.UntypedStruct) (Entry, error) {
	payloadList, err := u.List(wordU64(0))
	if err != nil {
		return Entry{}, err
	}
	payload, err := payloadList.DecodeU8()
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Term:    Term(u.U64(wordU64(0))),
		Index:   Index(u.U64(wordU64(1))),
		Payload: payload,
	}, nil
}

// BuildEntriesList writes entries as a composite list field at offsetE in
// b's pointer section.
func BuildEntriesList(b wire.UntypedStructBuilder, offsetE wire.NumElements, entries []Entry) {
	b.SetCompositeListField(offsetE, len(entries), entryDataWords, entryPointerWords, func(i int, el wire.UntypedStructBuilder) {
		entries[i].buildInto(el)
	})
}

// DecodeEntriesList reads a composite list of Entry values from the list
// pointer field at offsetE.
func DecodeEntriesList(u wire.UntypedStruct, offsetE wire.NumElements) ([]Entry, error) {
	list, err := u.List(offsetE)
	if err != nil {
		return nil, err
	}
	n, err := list.Len()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, n)
	err = list.ForEachComposite(func(i int, el wire.UntypedStruct) error {
		entry, err := DecodeEntry(el)
		if err != nil {
			return err
		}
		out[i] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
