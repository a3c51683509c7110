package wire

import "testing"

func TestStructRoundTripPrimitives(t *testing.T) {
	b := NewUntypedStructBuilder(2, 0)
	b.SetU8(0, 7)
	b.SetU16(1, 1234)
	b.SetU64(1, 0xdeadbeefcafef00d)
	shared := b.Finalize()

	r := shared.AsReader()
	if got := r.U8(0); got != 7 {
		t.Fatalf("U8(0) = %d, want 7", got)
	}
	if got := r.U16(1); got != 1234 {
		t.Fatalf("U16(1) = %d, want 1234", got)
	}
	if got := r.U64(1); got != 0xdeadbeefcafef00d {
		t.Fatalf("U64(1) = %#x, want 0xdeadbeefcafef00d", got)
	}
}

func TestDefaultOnTruncation(t *testing.T) {
	b := NewUntypedStructBuilder(1, 0)
	b.SetU8(0, 42)
	shared := b.Finalize()
	r := shared.AsReader()

	// Field at element offset 4 doesn't exist in a 1-data-word struct;
	// reading it must default to zero rather than error or panic.
	if got := r.U64(4); got != 0 {
		t.Fatalf("out-of-range U64 = %d, want 0 (default)", got)
	}
	list, err := r.List(0)
	if err != nil {
		t.Fatalf("List on empty pointer section: %v", err)
	}
	n, err := list.Len()
	if err != nil {
		t.Fatalf("Len of null list: %v", err)
	}
	if n != 0 {
		t.Fatalf("Len of null list = %d, want 0", n)
	}
}

func TestBytesListRoundTrip(t *testing.T) {
	b := NewUntypedStructBuilder(0, 1)
	b.SetBytes(0, []byte("hello raft"))
	shared := b.Finalize()

	r := shared.AsReader()
	list, err := r.List(0)
	if err != nil {
		t.Fatalf("List(0): %v", err)
	}
	got, err := list.DecodeU8()
	if err != nil {
		t.Fatalf("DecodeU8: %v", err)
	}
	if string(got) != "hello raft" {
		t.Fatalf("DecodeU8 = %q, want %q", got, "hello raft")
	}
}

func TestNilBytesRoundTripsToNull(t *testing.T) {
	b := NewUntypedStructBuilder(0, 1)
	b.SetBytes(0, nil)
	shared := b.Finalize()

	r := shared.AsReader()
	if r.PointerRaw(0).Kind != PointerNull {
		t.Fatalf("nil []byte should encode as Null pointer, got kind %d", r.PointerRaw(0).Kind)
	}
}

func TestCrossSegmentStructPointer(t *testing.T) {
	child := NewUntypedStructBuilder(1, 0)
	child.SetU8(0, 99)
	childShared := child.Finalize()

	parent := NewUntypedStructBuilder(0, 1)
	parent.SetStruct(0, &childShared)
	parentShared := parent.Finalize()

	r := parentShared.AsReader()
	gotChild, err := r.Struct(0)
	if err != nil {
		t.Fatalf("Struct(0): %v", err)
	}
	if got := gotChild.U8(0); got != 99 {
		t.Fatalf("child.U8(0) = %d, want 99", got)
	}
}

func TestNilStructPointerIsNull(t *testing.T) {
	parent := NewUntypedStructBuilder(0, 1)
	parent.SetStruct(0, nil)
	parentShared := parent.Finalize()

	r := parentShared.AsReader()
	got, err := r.Struct(0)
	if err != nil {
		t.Fatalf("Struct(0) on Null: %v", err)
	}
	if got.PointerEnd != EmptyReadPos {
		t.Fatalf("Null struct pointer should resolve to EmptyReadPos")
	}
}

func TestCompositeListRoundTrip(t *testing.T) {
	parent := NewUntypedStructBuilder(0, 1)
	values := []uint8{1, 2, 3, 4, 5}
	parent.pointerFieldsBegin().SetCompositeList(0, len(values), 1, 0, func(i int, el UntypedStructBuilder) {
		el.SetU8(0, values[i])
	})
	shared := parent.Finalize()

	r := shared.AsReader()
	list, err := r.List(0)
	if err != nil {
		t.Fatalf("List(0): %v", err)
	}
	n, err := list.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != len(values) {
		t.Fatalf("Len = %d, want %d", n, len(values))
	}
	for i, want := range values {
		el, err := list.CompositeElement(i)
		if err != nil {
			t.Fatalf("CompositeElement(%d): %v", i, err)
		}
		if got := el.U8(0); got != want {
			t.Fatalf("element %d U8(0) = %d, want %d", i, got, want)
		}
	}
}

func TestOfficialFramingRoundTrip(t *testing.T) {
	child := NewUntypedStructBuilder(1, 0)
	child.SetU64(0, 777)
	childShared := child.Finalize()

	root := NewUntypedStructBuilder(0, 1)
	root.SetStruct(0, &childShared)
	rootShared := root.Finalize()

	buf := EncodeOfficial(rootShared)
	decoded, err := DecodeOfficial(buf)
	if err != nil {
		t.Fatalf("DecodeOfficial: %v", err)
	}
	gotChild, err := decoded.Struct(0)
	if err != nil {
		t.Fatalf("decoded.Struct(0): %v", err)
	}
	if got := gotChild.U64(0); got != 777 {
		t.Fatalf("round-tripped child.U64(0) = %d, want 777", got)
	}
}

func TestAlternateFramingRoundTrip(t *testing.T) {
	root := NewUntypedStructBuilder(1, 0)
	root.SetU64(0, 0x1234)
	rootShared := root.Finalize()

	buf := EncodeAlternate(rootShared)
	decoded, err := DecodeAlternate(buf)
	if err != nil {
		t.Fatalf("DecodeAlternate: %v", err)
	}
	if got := decoded.U64(0); got != 0x1234 {
		t.Fatalf("round-tripped U64(0) = %#x, want 0x1234", got)
	}
}

func TestAlternateFramingDuplicateSegmentIgnored(t *testing.T) {
	root := NewUntypedStructBuilder(1, 0)
	root.SetU64(0, 55)
	rootShared := root.Finalize()

	buf := EncodeAlternate(rootShared)
	// Append a bogus duplicate of segment 0 with different content; it
	// must be ignored, not override the real root.
	dup := append([]byte{}, buf...)
	dup[16] = 99 // first data byte of the duplicate's root struct (8-byte header, 8-byte landing pad)
	buf = append(buf, dup...)

	decoded, err := DecodeAlternate(buf)
	if err != nil {
		t.Fatalf("DecodeAlternate with duplicate: %v", err)
	}
	if got := decoded.U64(0); got != 55 {
		t.Fatalf("U64(0) = %d, want 55 (first occurrence kept)", got)
	}
}

func TestCompositeTagLengthMismatchErrors(t *testing.T) {
	tag := ListCompositeTag{NumElements: 2, DataWords: 1, PointerWords: 0}
	encoded := tag.encode()
	// A list pointer whose declared total length disagrees with what the
	// tag implies (2 elements * 1 word = 2, but we claim 99) must error
	// rather than silently truncate or over-read.
	lp := ListPointer{Off: 0, Layout: ListLayout{Kind: LayoutComposite, TotalWords: 99}}
	seg := &sharedSegment{buf: append(encoded[:], make([]byte, 16)...)}
	pos := readPosFromRoot(seg)
	list := NewUntypedList(lp, pos)
	if _, err := list.CompositeElement(0); err == nil {
		t.Fatalf("expected composite tag/pointer length mismatch to error")
	}
}

func TestUnknownDiscriminant(t *testing.T) {
	meta := UnionMeta{
		Name:       "Payload",
		DiscOffset: 0,
		Variants:   map[Discriminant]string{0: "append_entries", 1: "request_vote"},
	}
	if _, err := meta.VariantName(Discriminant(99)); err == nil {
		t.Fatalf("expected UnknownDiscriminant error for value not in schema")
	} else if _, ok := err.(*UnknownDiscriminant); !ok {
		t.Fatalf("expected *UnknownDiscriminant, got %T", err)
	}
}
