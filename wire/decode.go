package wire

// ReadPos names a byte position within a message: a segment plus a word
// offset from that segment's start. It is the reader-side equivalent of
// Cap'n Proto's "pointer_end" — the position immediately after the
// pointer word that was followed to reach here, from which relative
// offsets are resolved.
type ReadPos struct {
	seg *sharedSegment
	off NumWords
}

// EmptyReadPos is the position used for Null pointers: all accessors on
// it report default values (zero / Null / empty) rather than erroring.
var EmptyReadPos = ReadPos{}

func readPosFromRoot(seg *sharedSegment) ReadPos { return ReadPos{seg: seg} }

// Add returns the position offset by n words.
func (p ReadPos) Add(n NumWords) ReadPos { return ReadPos{seg: p.seg, off: p.off + n} }

// segment exposes the underlying shared segment, for code (SetStruct,
// SetList) that needs to register a cross-segment reference to wherever
// this position currently lives.
func (p ReadPos) segment() *sharedSegment { return p.seg }

func (p ReadPos) buf() []byte {
	if p.seg == nil {
		return nil
	}
	return p.seg.Buf()
}

func (p ReadPos) other(id SegmentID) (*sharedSegment, bool) {
	if p.seg == nil {
		return nil, false
	}
	return p.seg.Other(id)
}

func (p ReadPos) raw(offsetE NumElements, width int) ([]byte, bool) {
	begin := p.off.AsBytes() + offsetE.AsBytes(width)
	buf := p.buf()
	if begin < 0 || begin+width > len(buf) {
		return nil, false
	}
	return buf[begin : begin+width], true
}

// U8 reads a byte field; out-of-range reads return the default value 0.
func (p ReadPos) U8(offsetE NumElements) uint8 {
	raw, ok := p.raw(offsetE, U8WidthBytes)
	if !ok {
		return 0
	}
	return raw[0]
}

// U16 reads a 2-byte little-endian field; defaults to 0 past the end.
func (p ReadPos) U16(offsetE NumElements) uint16 {
	raw, ok := p.raw(offsetE, U16WidthBytes)
	if !ok {
		return 0
	}
	return uint16(raw[0]) | uint16(raw[1])<<8
}

// U64 reads an 8-byte little-endian field; defaults to 0 past the end.
func (p ReadPos) U64(offsetE NumElements) uint64 {
	raw, ok := p.raw(offsetE, U64WidthBytes)
	if !ok {
		return 0
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(raw[i])
	}
	return v
}

// Pointer reads the pointer word at the given element offset; defaults to
// Null past the end of the segment.
func (p ReadPos) Pointer(offsetE NumElements) Pointer {
	raw, ok := p.raw(offsetE, PointerWidthBytes)
	if !ok {
		return NullPointer
	}
	var buf [8]byte
	copy(buf[:], raw)
	return DecodePointer(buf)
}

// StructPointer follows the pointer at offsetE, chasing far pointers
// (including the two-word landing-pad form) as needed, and returns the
// struct's header plus the position its body is relative to.
func (p ReadPos) StructPointer(offsetE NumElements) (StructPointer, ReadPos, error) {
	switch ptr := p.Pointer(offsetE); ptr.Kind {
	case PointerNull:
		return StructPointer{}, EmptyReadPos, nil
	case PointerStruct:
		end := p.Add(PointerWidthWords*NumWords(offsetE) + PointerWidthWords)
		return ptr.Struct, end, nil
	case PointerFar:
		return p.farStructPointer(ptr.Far)
	default:
		return StructPointer{}, ReadPos{}, Encodingf("expected struct pointer, got kind %d", ptr.Kind)
	}
}

func (p ReadPos) farStructPointer(far FarPointer) (StructPointer, ReadPos, error) {
	seg, ok := p.other(far.Seg)
	if !ok {
		return StructPointer{}, ReadPos{}, Encodingf("far struct pointer segment %d not found", far.Seg)
	}
	target := readPosFromRoot(seg).Add(far.Off)
	switch far.LandingPadSize {
	case LandingPadOneWord:
		return target.StructPointer(0)
	case LandingPadTwoWords:
		farFarPtr := target.Pointer(0)
		if farFarPtr.Kind != PointerFar {
			return StructPointer{}, ReadPos{}, Encodingf("expected far pointer in two-word landing pad, got kind %d", farFarPtr.Kind)
		}
		if farFarPtr.Far.LandingPadSize != LandingPadOneWord {
			return StructPointer{}, ReadPos{}, Encodingf("expected one-word far pointer in landing pad, got two-word")
		}
		template, _, err := target.StructPointer(1)
		if err != nil {
			return StructPointer{}, ReadPos{}, err
		}
		innerSeg, ok := p.other(farFarPtr.Far.Seg)
		if !ok {
			return StructPointer{}, ReadPos{}, Encodingf("far-far pointer segment %d not found", farFarPtr.Far.Seg)
		}
		sp := StructPointer{Off: farFarPtr.Far.Off, DataWords: template.DataWords, PointerWords: template.PointerWords}
		return sp, readPosFromRoot(innerSeg), nil
	default:
		return StructPointer{}, ReadPos{}, Encodingf("invalid landing pad size")
	}
}

// ListPointer is the list-pointer analogue of StructPointer.
func (p ReadPos) ListPointer(offsetE NumElements) (ListPointer, ReadPos, error) {
	switch ptr := p.Pointer(offsetE); ptr.Kind {
	case PointerNull:
		return ListPointer{Layout: ListLayout{Kind: LayoutPacked, Width: WidthVoid}}, EmptyReadPos, nil
	case PointerList:
		end := p.Add(PointerWidthWords*NumWords(offsetE) + PointerWidthWords)
		return ptr.List, end, nil
	case PointerFar:
		return p.farListPointer(ptr.Far)
	default:
		return ListPointer{}, ReadPos{}, Encodingf("expected list pointer, got kind %d", ptr.Kind)
	}
}

func (p ReadPos) farListPointer(far FarPointer) (ListPointer, ReadPos, error) {
	seg, ok := p.other(far.Seg)
	if !ok {
		return ListPointer{}, ReadPos{}, Encodingf("far list pointer segment %d not found", far.Seg)
	}
	target := readPosFromRoot(seg).Add(far.Off)
	switch far.LandingPadSize {
	case LandingPadOneWord:
		return target.ListPointer(0)
	case LandingPadTwoWords:
		farFarPtr := target.Pointer(0)
		if farFarPtr.Kind != PointerFar {
			return ListPointer{}, ReadPos{}, Encodingf("expected far pointer in two-word landing pad, got kind %d", farFarPtr.Kind)
		}
		if farFarPtr.Far.LandingPadSize != LandingPadOneWord {
			return ListPointer{}, ReadPos{}, Encodingf("expected one-word far pointer in landing pad, got two-word")
		}
		template, _, err := target.ListPointer(1)
		if err != nil {
			return ListPointer{}, ReadPos{}, err
		}
		innerSeg, ok := p.other(farFarPtr.Far.Seg)
		if !ok {
			return ListPointer{}, ReadPos{}, Encodingf("far-far pointer segment %d not found", farFarPtr.Far.Seg)
		}
		lp := ListPointer{Off: farFarPtr.Far.Off, Layout: template.Layout}
		return lp, readPosFromRoot(innerSeg), nil
	default:
		return ListPointer{}, ReadPos{}, Encodingf("invalid landing pad size")
	}
}

// ListCompositeTag reads the tag word prefixing a composite list.
func (p ReadPos) ListCompositeTag() (ListCompositeTag, ReadPos, error) {
	raw, ok := p.raw(0, U64WidthBytes)
	if !ok {
		return ListCompositeTag{}, ReadPos{}, Encodingf("expected composite tag, buffer too short")
	}
	var buf [8]byte
	copy(buf[:], raw)
	tag, err := decodeListCompositeTag(buf)
	if err != nil {
		return ListCompositeTag{}, ReadPos{}, err
	}
	return tag, p.Add(CompositeTagWidthWords), nil
}
