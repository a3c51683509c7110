package wire

// UntypedList is a finite, restartable view over a list's elements,
// produced by borrowing a parent position and a resolved list pointer. It
// does not copy the underlying bytes; Decode* helpers below materialize a
// Go slice when the caller wants one.
type UntypedList struct {
	pointer    ListPointer
	pointerEnd ReadPos
}

// NewUntypedList wraps an already-resolved list pointer.
func NewUntypedList(pointer ListPointer, pointerEnd ReadPos) UntypedList {
	return UntypedList{pointer: pointer, pointerEnd: pointerEnd}
}

func (l UntypedList) listDataBegin() ReadPos { return l.pointerEnd.Add(l.pointer.Off) }

// Len returns the element count, resolving a composite list's element
// count from its tag word.
func (l UntypedList) Len() (int, error) {
	switch l.pointer.Layout.Kind {
	case LayoutPacked:
		return int(l.pointer.Layout.NumElements), nil
	case LayoutComposite:
		tag, _, err := l.listDataBegin().ListCompositeTag()
		if err != nil {
			return 0, err
		}
		return int(tag.NumElements), nil
	default:
		return 0, Encodingf("unsupported list layout kind %d", l.pointer.Layout.Kind)
	}
}

// DecodeU8 materializes a packed list of bytes.
func (l UntypedList) DecodeU8() ([]byte, error) {
	if l.pointer.Layout.Kind != LayoutPacked {
		return nil, Encodingf("unsupported list layout for []byte: %+v", l.pointer.Layout)
	}
	if l.pointer.Layout.NumElements == 0 && l.pointer.Layout.Width == WidthVoid {
		return nil, nil
	}
	if l.pointer.Layout.Width != WidthOneByte {
		return nil, Encodingf("unsupported list element width for []byte: %s", l.pointer.Layout.Width)
	}
	n := int(l.pointer.Layout.NumElements)
	out := make([]byte, n)
	begin := l.listDataBegin()
	for i := 0; i < n; i++ {
		out[i] = begin.U8(NumElements(i))
	}
	return out, nil
}

// DecodeU64 materializes a packed list of 8-byte non-pointer values.
func (l UntypedList) DecodeU64() ([]uint64, error) {
	if l.pointer.Layout.Kind != LayoutPacked {
		return nil, Encodingf("unsupported list layout for []uint64: %+v", l.pointer.Layout)
	}
	if l.pointer.Layout.NumElements == 0 && l.pointer.Layout.Width == WidthVoid {
		return nil, nil
	}
	if l.pointer.Layout.Width != WidthEightBytesNonPointer {
		return nil, Encodingf("unsupported list element width for []uint64: %s", l.pointer.Layout.Width)
	}
	n := int(l.pointer.Layout.NumElements)
	out := make([]uint64, n)
	begin := l.listDataBegin()
	for i := 0; i < n; i++ {
		out[i] = begin.U64(NumElements(i))
	}
	return out, nil
}

// CompositeElement reconstitutes the i-th element of a composite
// (struct) list as an UntypedStruct, using the tag's declared data/pointer
// word counts. Encoders from a newer schema may have written larger
// structs; this still returns the correctly sized UntypedStruct and older
// callers simply never read the extra bytes.
func (l UntypedList) CompositeElement(i int) (UntypedStruct, error) {
	if l.pointer.Layout.Kind != LayoutComposite {
		return UntypedStruct{}, Encodingf("CompositeElement called on non-composite list")
	}
	declaredLen := l.pointer.Layout.TotalWords
	tag, tagEnd, err := l.listDataBegin().ListCompositeTag()
	if err != nil {
		return UntypedStruct{}, err
	}
	elemWords := tag.DataWords + tag.PointerWords
	wantLen := elemWords*NumWords(tag.NumElements) + CompositeTagWidthWords
	if wantLen != declaredLen {
		return UntypedStruct{}, Encodingf(
			"composite tag length (%d) doesn't agree with pointer (%d)",
			wantLen, declaredLen)
	}
	if i < 0 || i >= int(tag.NumElements) {
		return UntypedStruct{}, Encodingf("composite list index %d out of range [0,%d)", i, tag.NumElements)
	}
	offsetW := elemWords * NumWords(i)
	pointer := StructPointer{Off: offsetW, DataWords: tag.DataWords, PointerWords: tag.PointerWords}
	return NewUntypedStruct(pointer, tagEnd), nil
}

// ForEachComposite calls fn for every element of a composite list, in
// forward order.
func (l UntypedList) ForEachComposite(fn func(int, UntypedStruct) error) error {
	n, err := l.Len()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		el, err := l.CompositeElement(i)
		if err != nil {
			return err
		}
		if err := fn(i, el); err != nil {
			return err
		}
	}
	return nil
}

// UntypedListShared is an UntypedList plus an explicit ownership handle,
// the list analogue of UntypedStructShared: a value-copy-shareable view
// over a list that owns its own segment.
type UntypedListShared struct {
	UntypedList
}

// AsReader returns the (identical) reader view.
func (l UntypedListShared) AsReader() UntypedList { return l.UntypedList }

// NewStandaloneBytesListBuilder allocates a fresh segment holding a
// packed byte list, reserving a landing-pad word exactly as
// NewUntypedStructBuilder does, so the result can be embedded elsewhere
// with SetList. Used for root-level or doubly-nested list fields; a list
// nested directly inside a struct's own pointer section should instead
// use UntypedStructBuilder.SetBytes, which allocates inline.
func NewStandaloneBytesListBuilder(v []byte) UntypedListShared {
	seg := newBuilderSegment()
	lenWords := NumWords((len(v) + WordBytes - 1) / WordBytes)
	seg.EnsureLen((PointerWidthWords + lenWords).AsBytes())
	copy(seg.BufMut()[PointerWidthWords.AsBytes():], v)
	pad := WritePos{seg: seg}
	pad.SetPointerRaw(0, Pointer{Kind: PointerList, List: ListPointer{
		Off:    0,
		Layout: ListLayout{Kind: LayoutPacked, NumElements: NumElements(len(v)), Width: WidthOneByte},
	}})
	sealed := seg.Seal()
	pointer := ListPointer{Off: PointerWidthWords, Layout: ListLayout{Kind: LayoutPacked, NumElements: NumElements(len(v)), Width: WidthOneByte}}
	return UntypedListShared{UntypedList{pointer: pointer, pointerEnd: readPosFromRoot(sealed)}}
}

// NewStandaloneCompositeListBuilder allocates a fresh segment holding a
// composite (struct) list, reserving a landing-pad word, for embedding
// elsewhere with SetList.
func NewStandaloneCompositeListBuilder(numElements int, dataWords, pointerWords NumWords, fn func(i int, el UntypedStructBuilder)) UntypedListShared {
	seg := newBuilderSegment()
	elemWords := dataWords + pointerWords
	bodyWords := NumWords(numElements)*elemWords + CompositeTagWidthWords
	seg.EnsureLen((PointerWidthWords + bodyWords).AsBytes())

	tagPos := WritePos{seg: seg, off: PointerWidthWords}
	tagPos.SetPointerRaw(0, Pointer{Kind: PointerStruct, Struct: StructPointer{
		Off: NumWords(numElements), DataWords: dataWords, PointerWords: pointerWords,
	}})
	for i := 0; i < numElements; i++ {
		elOff := PointerWidthWords + CompositeTagWidthWords + NumWords(i)*elemWords
		fn(i, UntypedStructBuilder{seg: seg, pointer: StructPointer{Off: elOff, DataWords: dataWords, PointerWords: pointerWords}})
	}

	pad := WritePos{seg: seg}
	pad.SetPointerRaw(0, Pointer{Kind: PointerList, List: ListPointer{Off: 0, Layout: ListLayout{Kind: LayoutComposite, TotalWords: bodyWords}}})

	sealed := seg.Seal()
	pointer := ListPointer{Off: PointerWidthWords, Layout: ListLayout{Kind: LayoutComposite, TotalWords: bodyWords}}
	return UntypedListShared{UntypedList{pointer: pointer, pointerEnd: readPosFromRoot(sealed)}}
}
