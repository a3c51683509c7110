// Package wire implements a zero-copy binary message runtime: a segmented
// arena, the Cap'n-Proto-style pointer codec, and the reader/shared/builder
// triad typed accessors are generated against. It does not implement the
// packed compression variant of the format.
package wire

import "fmt"

// NumWords is a count of 64-bit words. Only the bottom 29 bits are
// meaningful on the wire.
type NumWords int32

// AsBytes returns the number of bytes represented by n words.
func (n NumWords) AsBytes() int { return int(n) * WordBytes }

// NumElements is a count of elements of some fixed-width type.
type NumElements int32

// AsBytes returns the number of bytes represented by n elements of the
// given byte width.
func (n NumElements) AsBytes(width int) int { return int(n) * width }

// Discriminant is an enum or union tag, stored as an unsigned 16-bit word.
type Discriminant uint16

// SegmentID names a segment within a message.
type SegmentID uint32

const (
	U8WidthBytes  = 1
	U16WidthBytes = 2
	U32WidthBytes = 4
	U64WidthBytes = 8

	WordBytes             = 8
	PointerWidthWords     = NumWords(1)
	PointerWidthBytes     = int(PointerWidthWords) * WordBytes
	CompositeTagWidthWords = PointerWidthWords
)

// ElementWidth is the width of one element of a packed (non-composite)
// list, as carried in the low bits of a list pointer.
type ElementWidth uint8

const (
	WidthVoid ElementWidth = iota
	WidthOneBit
	WidthOneByte
	WidthTwoBytes
	WidthFourBytes
	WidthEightBytesNonPointer
	WidthEightBytesPointer
)

// ListLenBytes returns the number of bytes occupied by n elements of this
// width. Only the widths produced by the encoder (byte-aligned, non-bit)
// are supported; bit-packed lists are read-only pass-through via the
// decoder and are never constructed by the builder in this implementation.
func (w ElementWidth) ListLenBytes(n int) int {
	switch w {
	case WidthOneByte:
		return n
	case WidthTwoBytes:
		return 2 * n
	case WidthFourBytes:
		return 4 * n
	case WidthEightBytesNonPointer, WidthEightBytesPointer:
		return 8 * n
	case WidthVoid:
		return 0
	default:
		panic(fmt.Sprintf("wire: unsupported list element width %d for byte-length computation", w))
	}
}

func (w ElementWidth) String() string {
	switch w {
	case WidthVoid:
		return "void"
	case WidthOneBit:
		return "1bit"
	case WidthOneByte:
		return "1B"
	case WidthTwoBytes:
		return "2B"
	case WidthFourBytes:
		return "4B"
	case WidthEightBytesNonPointer:
		return "8B-nonptr"
	case WidthEightBytesPointer:
		return "8B-ptr"
	default:
		return "unknown"
	}
}
