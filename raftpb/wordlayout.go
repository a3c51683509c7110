package raftpb

import "github.com/lattice-raft/raft/wire"

// word* helpers translate a whole-word index into the element offset
// wire's U8/U16/U64 accessors expect, for schemas (all of them, in this
// package) that give every field its own full 8-byte word rather than
// bit-packing. Simpler to get right, slightly wasteful on the wire.
func wordU64(word int) wire.NumElements { return wire.NumElements(word) }
func wordU16(word int) wire.NumElements { return wire.NumElements(word * 4) }
func wordU8(word int) wire.NumElements  { return wire.NumElements(word * 8) }

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func u64ToBool(v uint64) bool { return v != 0 }
