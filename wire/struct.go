package wire

// UntypedStruct is a zero-copy, freely-cloneable reader over a struct's
// data and pointer sections. Cloning an UntypedStruct is a cheap value
// copy: it shares the underlying segment read-only.
type UntypedStruct struct {
	Pointer    StructPointer
	PointerEnd ReadPos
}

// NewUntypedStruct builds a reader from an already-resolved struct
// pointer and the position it is relative to.
func NewUntypedStruct(pointer StructPointer, pointerEnd ReadPos) UntypedStruct {
	return UntypedStruct{Pointer: pointer, PointerEnd: pointerEnd}
}

func (u UntypedStruct) dataFieldsBegin() ReadPos { return u.PointerEnd.Add(u.Pointer.Off) }
func (u UntypedStruct) pointerFieldsBegin() ReadPos {
	return u.dataFieldsBegin().Add(u.Pointer.DataWords)
}

// U8/U16/U64 read fixed-width primitive fields from the data section.
// Reads past the struct's declared data_words (forward compatibility, or
// a Null/empty struct) return the default value.
func (u UntypedStruct) U8(offsetE NumElements) uint8   { return u.dataField(offsetE, U8WidthBytes).U8(offsetE) }
func (u UntypedStruct) U16(offsetE NumElements) uint16 { return u.dataField(offsetE, U16WidthBytes).U16(offsetE) }
func (u UntypedStruct) U64(offsetE NumElements) uint64 { return u.dataField(offsetE, U64WidthBytes).U64(offsetE) }

// dataField returns the data section's start when a field of the given
// width at offsetE lies inside the declared data_words, and EmptyReadPos
// (which reads as zero) when it does not.
func (u UntypedStruct) dataField(offsetE NumElements, width int) ReadPos {
	if offsetE < 0 || offsetE.AsBytes(width)+width > u.Pointer.DataWords.AsBytes() {
		return EmptyReadPos
	}
	return u.dataFieldsBegin()
}

// PointerRaw reads a raw pointer field without interpreting it.
func (u UntypedStruct) PointerRaw(offsetE NumElements) Pointer {
	return u.pointerFieldsBegin().Pointer(offsetE)
}

// Struct reads and resolves a nested struct pointer field.
func (u UntypedStruct) Struct(offsetE NumElements) (UntypedStruct, error) {
	pointer, end, err := u.pointerFieldsBegin().StructPointer(offsetE)
	if err != nil {
		return UntypedStruct{}, err
	}
	return NewUntypedStruct(pointer, end), nil
}

// List reads and resolves a list pointer field.
func (u UntypedStruct) List(offsetE NumElements) (UntypedList, error) {
	pointer, end, err := u.pointerFieldsBegin().ListPointer(offsetE)
	if err != nil {
		return UntypedList{}, err
	}
	return NewUntypedList(pointer, end), nil
}

// UnionDiscriminant reads a discriminant at offsetE within the data
// section; the variant's own field is then read directly from this same
// struct (see UnionMeta.Discriminant and UnionMeta.VariantName).
func (u UntypedStruct) UnionDiscriminant(offsetE NumElements) Discriminant {
	return Discriminant(u.dataFieldsBegin().U16(offsetE))
}

// UntypedStructShared is an UntypedStruct plus an explicit ownership
// handle on the segment (and its other-segment table), suitable for
// holding across goroutines or past the lifetime of a single decode call.
// In this implementation the Go garbage collector is the ownership
// mechanism, so Shared and the reader share representation; the two
// named types exist to match the reader/shared/builder API surface
// described by the schema.
type UntypedStructShared struct {
	UntypedStruct
}

// AsReader returns the (identical) reader view.
func (u UntypedStructShared) AsReader() UntypedStruct { return u.UntypedStruct }

// UntypedStructBuilder is a mutable, exclusive struct under construction.
//
// Every builder-owned segment reserves its first word as a landing pad: a
// near struct pointer describing the data actually starting at word 1.
// This lets Finalize hand out a segment that is immediately embeddable
// elsewhere via a one-word far pointer (SetStruct), without having to
// special-case the not-yet-embedded case.
type UntypedStructBuilder struct {
	seg     *builderSegment
	pointer StructPointer // Off is the word offset of the data section from the start of seg: 1 (past the landing pad) for NewUntypedStructBuilder, the element's slot for a composite-list element.
}

// NewUntypedStructBuilder allocates a fresh segment sized for a struct
// with the given data/pointer word counts, zero-initialized.
func NewUntypedStructBuilder(dataWords, pointerWords NumWords) UntypedStructBuilder {
	seg := newBuilderSegment()
	seg.EnsureLen((PointerWidthWords + dataWords + pointerWords).AsBytes())
	return UntypedStructBuilder{seg: seg, pointer: StructPointer{Off: PointerWidthWords, DataWords: dataWords, PointerWords: pointerWords}}
}

func (b UntypedStructBuilder) pointerEnd() WritePos { return WritePos{seg: b.seg} }
func (b UntypedStructBuilder) dataFieldsBegin() WritePos {
	return b.pointerEnd().Add(b.pointer.Off)
}
func (b UntypedStructBuilder) pointerFieldsBegin() WritePos {
	return b.dataFieldsBegin().Add(b.pointer.DataWords)
}

// SetU8/SetU16/SetU64 write fixed-width primitive fields into the data
// section, growing the segment if necessary.
func (b UntypedStructBuilder) SetU8(offsetE NumElements, v uint8)   { b.dataFieldsBegin().SetU8(offsetE, v) }
func (b UntypedStructBuilder) SetU16(offsetE NumElements, v uint16) { b.dataFieldsBegin().SetU16(offsetE, v) }
func (b UntypedStructBuilder) SetU64(offsetE NumElements, v uint64) { b.dataFieldsBegin().SetU64(offsetE, v) }

// SetDiscriminant writes a union/enum discriminant into the data section.
func (b UntypedStructBuilder) SetDiscriminant(offsetE NumElements, v Discriminant) {
	b.dataFieldsBegin().SetU16(offsetE, uint16(v))
}

// SetStruct writes a far pointer to a child struct's root, recording a
// reference to the child's segment (and everything it transitively
// reaches) in this builder's other-segment table. A nil child writes Null.
func (b UntypedStructBuilder) SetStruct(offsetE NumElements, child *UntypedStructShared) {
	b.pointerFieldsBegin().SetStruct(offsetE, child)
}

// SetBytes writes a []byte field as a packed list of bytes.
func (b UntypedStructBuilder) SetBytes(offsetE NumElements, v []byte) {
	b.pointerFieldsBegin().SetBytesList(offsetE, v)
}

// SetU64List writes a []uint64 field as a packed list.
func (b UntypedStructBuilder) SetU64List(offsetE NumElements, v []uint64) {
	b.pointerFieldsBegin().SetU64List(offsetE, v)
}

// SetCompositeListField writes a composite (struct) list field at
// offsetE, calling fn once per element with a builder bound directly into
// the list's storage.
func (b UntypedStructBuilder) SetCompositeListField(offsetE NumElements, numElements int, dataWords, pointerWords NumWords, fn func(i int, el UntypedStructBuilder)) {
	b.pointerFieldsBegin().SetCompositeList(offsetE, numElements, dataWords, pointerWords, fn)
}

// SetList writes a pointer to a standalone list object (one built via
// NewStandaloneBytesListBuilder/NewStandaloneCompositeListBuilder) at
// offsetE.
func (b UntypedStructBuilder) SetList(offsetE NumElements, child *UntypedListShared) {
	b.pointerFieldsBegin().SetList(offsetE, child)
}

// Finalize writes the landing pad word, seals the builder's segment, and
// returns a shared owner handle on the resulting struct.
func (b UntypedStructBuilder) Finalize() UntypedStructShared {
	b.pointerEnd().SetPointerRaw(0, Pointer{Kind: PointerStruct, Struct: StructPointer{
		DataWords:    b.pointer.DataWords,
		PointerWords: b.pointer.PointerWords,
	}})
	sealed := b.seg.Seal()
	return UntypedStructShared{UntypedStruct{Pointer: b.pointer, PointerEnd: readPosFromRoot(sealed)}}
}
