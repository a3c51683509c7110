package wire

// WritePos names a byte position within a builder's segment: the
// write-side equivalent of ReadPos. It never reads; it writes bytes at its
// offset, first growing the segment when the write would run past its
// current length.
type WritePos struct {
	seg *builderSegment
	off NumWords
}

// Add returns the position offset by n words.
func (p WritePos) Add(n NumWords) WritePos { return WritePos{seg: p.seg, off: p.off + n} }

func (p WritePos) ensure(offsetE NumElements, width int) []byte {
	begin := p.off.AsBytes() + offsetE.AsBytes(width)
	p.seg.EnsureLen(begin + width)
	return p.seg.BufMut()[begin : begin+width]
}

// SetU8/SetU16/SetU64 write fixed-width little-endian fields, growing the
// segment as needed.
func (p WritePos) SetU8(offsetE NumElements, v uint8) {
	p.ensure(offsetE, U8WidthBytes)[0] = v
}

func (p WritePos) SetU16(offsetE NumElements, v uint16) {
	buf := p.ensure(offsetE, U16WidthBytes)
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
}

func (p WritePos) SetU64(offsetE NumElements, v uint64) {
	buf := p.ensure(offsetE, U64WidthBytes)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

// SetPointerRaw writes an already-encoded pointer word at offsetE.
func (p WritePos) SetPointerRaw(offsetE NumElements, ptr Pointer) {
	buf := p.ensure(offsetE, PointerWidthBytes)
	encoded := ptr.Encode()
	copy(buf, encoded[:])
}

// wordAfter returns the position immediately following the pointer word
// that would be written at offsetE: the origin that a near pointer's Off
// is relative to.
func (p WritePos) wordAfter(offsetE NumElements) WritePos {
	return p.Add(PointerWidthWords*NumWords(offsetE) + PointerWidthWords)
}

// SetStruct writes a pointer to child at offsetE. A nil child writes
// Null. Otherwise child's segment (built independently via
// NewUntypedStructBuilder/Finalize, and so carrying a landing-pad word at
// its own offset 0) is registered in this segment's other-segment table
// and referenced with a one-word far pointer.
func (p WritePos) SetStruct(offsetE NumElements, child *UntypedStructShared) {
	if child == nil {
		p.SetPointerRaw(offsetE, NullPointer)
		return
	}
	childSeg := child.UntypedStruct.PointerEnd.segment()
	id := p.seg.OtherReference(childSeg)
	p.SetPointerRaw(offsetE, Pointer{Kind: PointerFar, Far: FarPointer{LandingPadSize: LandingPadOneWord, Off: 0, Seg: id}})
}

// SetList writes a pointer to child at offsetE, the list analogue of
// SetStruct.
func (p WritePos) SetList(offsetE NumElements, child *UntypedListShared) {
	if child == nil {
		p.SetPointerRaw(offsetE, NullPointer)
		return
	}
	childSeg := child.UntypedList.pointerEnd.segment()
	id := p.seg.OtherReference(childSeg)
	p.SetPointerRaw(offsetE, Pointer{Kind: PointerFar, Far: FarPointer{LandingPadSize: LandingPadOneWord, Off: 0, Seg: id}})
}

// allocInSegment grows p's own segment by n words at its current end and
// returns the word offset the new region starts at.
func (p WritePos) allocInSegment(n NumWords) NumWords {
	start := p.seg.LenWordsRoundedUp()
	p.seg.EnsureLen((start + n).AsBytes())
	return start
}

// SetBytesList writes v as a packed list of bytes allocated inline in
// this position's own segment, and points offsetE at it with a near list
// pointer. A nil v writes Null, matching optional-bytes semantics.
func (p WritePos) SetBytesList(offsetE NumElements, v []byte) {
	if v == nil {
		p.SetPointerRaw(offsetE, NullPointer)
		return
	}
	lenWords := NumWords((len(v) + WordBytes - 1) / WordBytes)
	start := p.allocInSegment(lenWords)
	copy(p.seg.BufMut()[start.AsBytes():start.AsBytes()+len(v)], v)

	origin := p.wordAfter(offsetE)
	off := start - origin.off
	p.SetPointerRaw(offsetE, Pointer{Kind: PointerList, List: ListPointer{
		Off:    off,
		Layout: ListLayout{Kind: LayoutPacked, NumElements: NumElements(len(v)), Width: WidthOneByte},
	}})
}

// SetU64List writes v as a packed list of 8-byte non-pointer values,
// inline in this position's own segment.
func (p WritePos) SetU64List(offsetE NumElements, v []uint64) {
	if v == nil {
		p.SetPointerRaw(offsetE, NullPointer)
		return
	}
	start := p.allocInSegment(NumWords(len(v)))
	base := WritePos{seg: p.seg, off: start}
	for i, x := range v {
		base.SetU64(NumElements(i), x)
	}

	origin := p.wordAfter(offsetE)
	off := start - origin.off
	p.SetPointerRaw(offsetE, Pointer{Kind: PointerList, List: ListPointer{
		Off:    off,
		Layout: ListLayout{Kind: LayoutPacked, NumElements: NumElements(len(v)), Width: WidthEightBytesNonPointer},
	}})
}

// SetCompositeList points offsetE at a composite (struct) list built
// inline in this position's own segment: a tag word followed by
// numElements fixed-size struct slots. The supplied fn is called once per
// element with a builder bound directly into the list's storage, so
// setting fields on it mutates this same segment with no additional far
// pointer.
func (p WritePos) SetCompositeList(offsetE NumElements, numElements int, dataWords, pointerWords NumWords, fn func(i int, el UntypedStructBuilder)) {
	elemWords := dataWords + pointerWords
	totalWords := NumWords(numElements)*elemWords + CompositeTagWidthWords
	start := p.allocInSegment(totalWords)

	tagPos := WritePos{seg: p.seg, off: start}
	tagPos.SetPointerRaw(0, Pointer{Kind: PointerStruct, Struct: StructPointer{
		Off: NumWords(numElements), DataWords: dataWords, PointerWords: pointerWords,
	}})

	for i := 0; i < numElements; i++ {
		elOff := start + CompositeTagWidthWords + NumWords(i)*elemWords
		el := UntypedStructBuilder{
			seg:     p.seg,
			pointer: StructPointer{Off: elOff, DataWords: dataWords, PointerWords: pointerWords},
		}
		fn(i, el)
	}

	origin := p.wordAfter(offsetE)
	off := start - origin.off
	p.SetPointerRaw(offsetE, Pointer{Kind: PointerList, List: ListPointer{
		Off:    off,
		Layout: ListLayout{Kind: LayoutComposite, TotalWords: totalWords},
	}})
}
