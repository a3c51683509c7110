// Package compressedlog implements CompressedLog, a compact
// representation of a contiguous run of (term, index) pairs: rather than
// storing every entry's term, it remembers only the indexes at which the
// term changed. Indexes in between are reconstructed from the nearest
// preceding term-change boundary.
package compressedlog

import "github.com/lattice-raft/raft/raftpb"

// TermIndex pairs a term with the index it was observed at.
type TermIndex struct {
	Term  raftpb.Term
	Index raftpb.Index
}

// CompressedLog tracks the (term, index) span of a raft log without
// storing a full per-entry term. Extend is the only mutator; it accepts
// entries from any index (not just the current end) and trims any
// previously recorded suffix that conflicts, mirroring how a follower
// overwrites a divergent log tail on AppendEntries.
type CompressedLog struct {
	begin       *TermIndex
	end         *TermIndex
	termChanges []TermIndex
}

// New returns an empty log.
func New() *CompressedLog {
	return &CompressedLog{}
}

// First returns the (term, index) of the oldest entry still tracked, or
// (0, 0) if the log is empty.
func (l *CompressedLog) First() TermIndex {
	if l.begin == nil {
		return TermIndex{}
	}
	return *l.begin
}

// Last returns the (term, index) of the newest entry, or (0, 0) if empty.
func (l *CompressedLog) Last() TermIndex {
	if l.end == nil {
		return TermIndex{}
	}
	return *l.end
}

// IndexTerm returns the term entry index was written at, and whether
// index is actually covered by this log (index 0 always reports term 0,
// the conventional "before the first entry" sentinel).
func (l *CompressedLog) IndexTerm(index raftpb.Index) (raftpb.Term, bool) {
	if index == 0 {
		return 0, true
	}
	for it := l.Iter(); it.Next(); {
		if it.Value().Index == index {
			return it.Value().Term, true
		}
	}
	return 0, false
}

// trim discards every recorded term-change boundary beyond index, and
// sets end accordingly. Entries strictly after index are no longer
// tracked.
func (l *CompressedLog) trim(index raftpb.Index) {
	for len(l.termChanges) > 0 && l.termChanges[len(l.termChanges)-1].Index > index {
		l.termChanges = l.termChanges[:len(l.termChanges)-1]
	}
	if len(l.termChanges) == 0 {
		l.begin = nil
		l.end = nil
		return
	}
	last := l.termChanges[len(l.termChanges)-1]
	l.end = &TermIndex{Term: last.Term, Index: index}
}

// Extend records entries, trimming any previously tracked suffix that
// conflicts with entries[0]'s index first (entries[0].Index-1 becomes the
// new end, discarding anything recorded after it).
func (l *CompressedLog) Extend(entries []raftpb.Entry) {
	if len(entries) == 0 {
		return
	}
	l.trim(entries[0].Index - 1)
	l.extendTrimmed(entries)
}

func (l *CompressedLog) extendTrimmed(entries []raftpb.Entry) {
	for _, entry := range entries {
		if l.begin == nil {
			l.begin = &TermIndex{Term: entry.Term, Index: entry.Index}
		}
		l.end = &TermIndex{Term: entry.Term, Index: entry.Index}
		if len(l.termChanges) == 0 || l.termChanges[len(l.termChanges)-1].Term != entry.Term {
			l.termChanges = append(l.termChanges, TermIndex{Term: entry.Term, Index: entry.Index})
		}
	}
}

// Iter returns a fresh, independent cursor over every (term, index) pair
// currently tracked, from First() to Last() inclusive. It supports
// forward traversal via Next/Value and reverse traversal via Prev/Value,
// and the two can be mixed (it meets in the middle, like Rust's
// DoubleEndedIterator).
func (l *CompressedLog) Iter() *Iterator {
	beginTI := l.First()
	endTI := beginTI
	if l.end != nil {
		endTI = TermIndex{Term: l.end.Term, Index: l.end.Index + 1}
	}
	return &Iterator{
		beginTerm:   beginTI.Term,
		beginIndex:  beginTI.Index,
		endTerm:     endTI.Term,
		endIndex:    endTI.Index,
		termChanges: append([]TermIndex(nil), l.termChanges...),
		valid:       false,
	}
}

// Len reports how many (term, index) pairs remain between the cursor's
// current bounds.
func (it *Iterator) Len() int {
	return int(it.endIndex - it.beginIndex)
}

// Iterator is a forward+reverse cursor produced by CompressedLog.Iter.
type Iterator struct {
	beginTerm  raftpb.Term
	beginIndex raftpb.Index
	endTerm    raftpb.Term
	endIndex   raftpb.Index

	termChanges []TermIndex

	current TermIndex
	valid   bool
}

// Next advances the cursor forward and reports whether a value is
// available.
func (it *Iterator) Next() bool {
	if it.beginIndex == it.endIndex {
		it.valid = false
		return false
	}
	term, index := it.beginTerm, it.beginIndex
	if len(it.termChanges) > 0 && it.beginIndex == it.termChanges[0].Index {
		it.termChanges = it.termChanges[1:]
	}
	it.beginIndex++
	if len(it.termChanges) > 0 && it.beginIndex == it.termChanges[0].Index {
		it.beginTerm = it.termChanges[0].Term
	}
	it.current = TermIndex{Term: term, Index: index}
	it.valid = true
	return true
}

// Prev retreats the cursor backward and reports whether a value is
// available.
func (it *Iterator) Prev() bool {
	if it.beginIndex == it.endIndex {
		it.valid = false
		return false
	}
	it.endIndex--
	if len(it.termChanges) > 0 && it.endIndex < it.termChanges[len(it.termChanges)-1].Index {
		it.termChanges = it.termChanges[:len(it.termChanges)-1]
		if len(it.termChanges) > 0 {
			it.endTerm = it.termChanges[len(it.termChanges)-1].Term
		} else {
			it.endTerm = it.beginTerm
		}
	}
	it.current = TermIndex{Term: it.endTerm, Index: it.endIndex}
	it.valid = true
	return true
}

// Value returns the pair most recently produced by Next or Prev. Calling
// it before any such call, or after one returns false, is a programmer
// error.
func (it *Iterator) Value() TermIndex {
	if !it.valid {
		panic("compressedlog: Value called without a valid Next/Prev")
	}
	return it.current
}

// Collect drains the cursor forward into a slice; intended for tests.
func (it *Iterator) Collect() []TermIndex {
	var out []TermIndex
	for it.Next() {
		out = append(out, it.Value())
	}
	return out
}
