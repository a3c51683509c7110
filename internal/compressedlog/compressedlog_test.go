package compressedlog

import (
	"reflect"
	"testing"

	"github.com/lattice-raft/raft/raftpb"
)

func ti(term uint64, index uint64) TermIndex {
	return TermIndex{Term: raftpb.Term(term), Index: raftpb.Index(index)}
}

func entry(term, index uint64) raftpb.Entry {
	return raftpb.Entry{Term: raftpb.Term(term), Index: raftpb.Index(index)}
}

func reversed(in []TermIndex) []TermIndex {
	out := make([]TermIndex, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func TestEmpty(t *testing.T) {
	log := New()
	if got := log.First(); got != (TermIndex{}) {
		t.Fatalf("First() = %+v, want zero value", got)
	}
	if got := log.Last(); got != (TermIndex{}) {
		t.Fatalf("Last() = %+v, want zero value", got)
	}
	if term, ok := log.IndexTerm(0); !ok || term != 0 {
		t.Fatalf("IndexTerm(0) = (%d, %v), want (0, true)", term, ok)
	}
	if _, ok := log.IndexTerm(1); ok {
		t.Fatalf("IndexTerm(1) on empty log should report not-found")
	}
	if got := log.Iter().Collect(); len(got) != 0 {
		t.Fatalf("Iter().Collect() = %v, want empty", got)
	}
}

func TestCompressedLogBasics(t *testing.T) {
	log := New()
	history := []TermIndex{ti(1, 1), ti(2, 2), ti(2, 3), ti(3, 4)}
	entries := []raftpb.Entry{entry(1, 1), entry(2, 2), entry(2, 3), entry(3, 4)}

	log.Extend(entries)
	if got := log.First(); got != history[0] {
		t.Fatalf("First() = %+v, want %+v", got, history[0])
	}
	if got := log.Last(); got != history[3] {
		t.Fatalf("Last() = %+v, want %+v", got, history[3])
	}

	for _, c := range []struct {
		index raftpb.Index
		term  raftpb.Term
		ok    bool
	}{
		{0, 0, true},
		{1, 1, true},
		{4, 3, true},
		{5, 0, false},
	} {
		term, ok := log.IndexTerm(c.index)
		if ok != c.ok || (ok && term != c.term) {
			t.Fatalf("IndexTerm(%d) = (%d, %v), want (%d, %v)", c.index, term, ok, c.term, c.ok)
		}
	}

	if got := log.Iter().Collect(); !reflect.DeepEqual(got, history) {
		t.Fatalf("forward iter = %v, want %v", got, history)
	}

	var rev []TermIndex
	it := log.Iter()
	for it.Prev() {
		rev = append(rev, it.Value())
	}
	if !reflect.DeepEqual(rev, reversed(history)) {
		t.Fatalf("reverse iter = %v, want %v", rev, reversed(history))
	}

	// Iterating again must reset cleanly.
	if got := log.Iter().Collect(); !reflect.DeepEqual(got, history) {
		t.Fatalf("second forward iter = %v, want %v", got, history)
	}
}

func TestExtendOverwritesDivergentSuffix(t *testing.T) {
	log := New()
	history := []TermIndex{ti(1, 1), ti(2, 2), ti(2, 3), ti(3, 4)}
	entries := []raftpb.Entry{entry(1, 1), entry(2, 2), entry(2, 3), entry(3, 4)}

	log.Extend(entries)
	if got := log.Iter().Collect(); !reflect.DeepEqual(got, history) {
		t.Fatalf("after first extend = %v, want %v", got, history)
	}

	log.Extend(entries[1:3])
	if got := log.Iter().Collect(); !reflect.DeepEqual(got, history[:3]) {
		t.Fatalf("after re-extend with prefix = %v, want %v", got, history[:3])
	}

	log.Extend(entries[2:])
	if got := log.Iter().Collect(); !reflect.DeepEqual(got, history) {
		t.Fatalf("after extend restoring tail = %v, want %v", got, history)
	}

	altHistory := []TermIndex{ti(5, 1), ti(6, 2), ti(7, 3)}
	altEntries := []raftpb.Entry{entry(5, 1), entry(6, 2), entry(7, 3)}

	log.Extend(altEntries[1:])
	want := []TermIndex{history[0], altHistory[1], altHistory[2]}
	if got := log.Iter().Collect(); !reflect.DeepEqual(got, want) {
		t.Fatalf("after divergent extend = %v, want %v", got, want)
	}

	log.Extend(altEntries)
	if got := log.Iter().Collect(); !reflect.DeepEqual(got, altHistory) {
		t.Fatalf("after full divergent extend = %v, want %v", got, altHistory)
	}

	log.trim(0)
	if got := log.First(); got != (TermIndex{}) {
		t.Fatalf("First() after trim(0) = %+v, want zero", got)
	}
	if got := log.Last(); got != (TermIndex{}) {
		t.Fatalf("Last() after trim(0) = %+v, want zero", got)
	}
}
