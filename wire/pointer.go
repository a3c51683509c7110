package wire

import "encoding/binary"

// PointerKind discriminates the four pointer-word variants.
type PointerKind uint8

const (
	PointerNull PointerKind = iota
	PointerStruct
	PointerList
	PointerFar
	PointerOther
)

// StructPointer addresses a struct's data+pointer sections relative to
// the word immediately following the pointer itself.
type StructPointer struct {
	Off         NumWords
	DataWords   NumWords
	PointerWords NumWords
}

func (p StructPointer) empty() StructPointer { return StructPointer{} }

func decodeStructPointer(buf [8]byte) StructPointer {
	raw := int32(binary.LittleEndian.Uint32(buf[0:4]))
	offsetWords := raw >> 2
	dataWords := binary.LittleEndian.Uint16(buf[4:6])
	pointerWords := binary.LittleEndian.Uint16(buf[6:8])
	return StructPointer{
		Off:          NumWords(offsetWords),
		DataWords:    NumWords(dataWords),
		PointerWords: NumWords(pointerWords),
	}
}

func (p StructPointer) encode() [8]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(p.Off)<<2))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(p.DataWords))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(p.PointerWords))
	return buf
}

// ListLayoutKind distinguishes a packed primitive list from a composite
// (struct) list.
type ListLayoutKind uint8

const (
	LayoutPacked ListLayoutKind = iota
	LayoutComposite
)

// ListLayout is the layout half of a list pointer.
type ListLayout struct {
	Kind        ListLayoutKind
	NumElements NumElements  // Packed
	Width       ElementWidth // Packed
	TotalWords  NumWords     // Composite
}

// ListPointer addresses a list relative to the word following the pointer.
type ListPointer struct {
	Off    NumWords
	Layout ListLayout
}

func (p ListPointer) empty() ListPointer {
	return ListPointer{Layout: ListLayout{Kind: LayoutPacked, Width: WidthVoid}}
}

func decodeListPointer(buf [8]byte) ListPointer {
	off := NumWords(int32(binary.LittleEndian.Uint32(buf[0:4])) >> 2)
	elementType := binary.LittleEndian.Uint32(buf[4:8]) & 0x7
	length := int32(binary.LittleEndian.Uint32(buf[4:8])) >> 3
	var layout ListLayout
	switch elementType {
	case 0:
		layout = ListLayout{Kind: LayoutPacked, NumElements: NumElements(length), Width: WidthVoid}
	case 1:
		layout = ListLayout{Kind: LayoutPacked, NumElements: NumElements(length), Width: WidthOneBit}
	case 2:
		layout = ListLayout{Kind: LayoutPacked, NumElements: NumElements(length), Width: WidthOneByte}
	case 3:
		layout = ListLayout{Kind: LayoutPacked, NumElements: NumElements(length), Width: WidthTwoBytes}
	case 4:
		layout = ListLayout{Kind: LayoutPacked, NumElements: NumElements(length), Width: WidthFourBytes}
	case 5:
		layout = ListLayout{Kind: LayoutPacked, NumElements: NumElements(length), Width: WidthEightBytesNonPointer}
	case 6:
		layout = ListLayout{Kind: LayoutPacked, NumElements: NumElements(length), Width: WidthEightBytesPointer}
	case 7:
		layout = ListLayout{Kind: LayoutComposite, TotalWords: NumWords(length)}
	}
	return ListPointer{Off: off, Layout: layout}
}

func (p ListPointer) encode() [8]byte {
	var length int32
	var elementType uint32
	if p.Layout.Kind == LayoutComposite {
		length = int32(p.Layout.TotalWords)
		elementType = 7
	} else {
		length = int32(p.Layout.NumElements)
		switch p.Layout.Width {
		case WidthVoid:
			elementType = 0
		case WidthOneBit:
			elementType = 1
		case WidthOneByte:
			elementType = 2
		case WidthTwoBytes:
			elementType = 3
		case WidthFourBytes:
			elementType = 4
		case WidthEightBytesNonPointer:
			elementType = 5
		case WidthEightBytesPointer:
			elementType = 6
		}
	}
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(p.Off)<<2)|0x1)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(length)<<3|elementType)
	return buf
}

// LandingPadSize distinguishes a one-word far pointer (landing pad is
// itself the target pointer) from a two-word far pointer (landing pad is
// a far-far pointer followed by a struct-pointer-shaped size template).
type LandingPadSize uint8

const (
	LandingPadOneWord LandingPadSize = iota
	LandingPadTwoWords
)

// FarPointer redirects to another segment.
type FarPointer struct {
	LandingPadSize LandingPadSize
	Off            NumWords
	Seg            SegmentID
}

func decodeFarPointer(buf [8]byte) FarPointer {
	landingPad := LandingPadOneWord
	if buf[0]&0b100 != 0 {
		landingPad = LandingPadTwoWords
	}
	offset := int32(binary.LittleEndian.Uint32(buf[0:4])) >> 3
	seg := binary.LittleEndian.Uint32(buf[4:8])
	return FarPointer{LandingPadSize: landingPad, Off: NumWords(offset), Seg: SegmentID(seg)}
}

func (p FarPointer) encode() [8]byte {
	var landingPad uint32
	if p.LandingPadSize == LandingPadTwoWords {
		landingPad = 1
	}
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(p.Off))<<3|landingPad<<2|0x2)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.Seg))
	return buf
}

// Pointer is the decoded form of one 8-byte pointer word.
type Pointer struct {
	Kind   PointerKind
	Struct StructPointer
	List   ListPointer
	Far    FarPointer
	Other  [8]byte
}

// NullPointer is the zero pointer.
var NullPointer = Pointer{Kind: PointerNull}

// DecodePointer decodes one pointer word.
func DecodePointer(buf [8]byte) Pointer {
	if buf == ([8]byte{}) {
		return NullPointer
	}
	switch buf[0] & 0x3 {
	case 0:
		return Pointer{Kind: PointerStruct, Struct: decodeStructPointer(buf)}
	case 1:
		return Pointer{Kind: PointerList, List: decodeListPointer(buf)}
	case 2:
		return Pointer{Kind: PointerFar, Far: decodeFarPointer(buf)}
	default:
		return Pointer{Kind: PointerOther, Other: buf}
	}
}

// Encode encodes the pointer back to its 8-byte wire form.
func (p Pointer) Encode() [8]byte {
	switch p.Kind {
	case PointerNull:
		return [8]byte{}
	case PointerStruct:
		return p.Struct.encode()
	case PointerList:
		return p.List.encode()
	case PointerFar:
		return p.Far.encode()
	default:
		return p.Other
	}
}

// ListCompositeTag is the tag word prefixing a composite list's elements.
// It has exactly the same bit layout as a struct pointer, with the offset
// field reinterpreted as an element count.
type ListCompositeTag struct {
	NumElements NumElements
	DataWords   NumWords
	PointerWords NumWords
}

func decodeListCompositeTag(buf [8]byte) (ListCompositeTag, error) {
	p := DecodePointer(buf)
	if p.Kind != PointerStruct {
		return ListCompositeTag{}, Encodingf("expected composite tag, got pointer kind %d", p.Kind)
	}
	return ListCompositeTag{
		NumElements:  NumElements(p.Struct.Off),
		DataWords:    p.Struct.DataWords,
		PointerWords: p.Struct.PointerWords,
	}, nil
}

func (t ListCompositeTag) encode() [8]byte {
	sp := StructPointer{Off: NumWords(t.NumElements), DataWords: t.DataWords, PointerWords: t.PointerWords}
	return sp.encode()
}
