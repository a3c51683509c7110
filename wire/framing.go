package wire

import "encoding/binary"

// collectSegments walks root's segment and everything it transitively
// references, returning them ordered by stream id with root always first.
func collectSegments(root UntypedStructShared) []*sharedSegment {
	rootSeg := root.UntypedStruct.PointerEnd.segment()
	out := []*sharedSegment{rootSeg}
	for id := SegmentID(1); ; id++ {
		seg, ok := rootSeg.Other(id)
		if !ok {
			break
		}
		out = append(out, seg)
	}
	return out
}

// EncodeOfficial serializes root using Cap'n Proto's standard stream
// framing: a little-endian (segment count - 1) word, one little-endian
// word-length per segment, zero padding out to an 8-byte boundary, then
// the segments themselves concatenated in order.
func EncodeOfficial(root UntypedStructShared) []byte {
	segments := collectSegments(root)

	headerWords := 1 + len(segments)
	headerBytes := headerWords * 4
	if headerBytes%WordBytes != 0 {
		headerBytes += 4 // pad to the next word boundary
	}

	total := headerBytes
	for _, seg := range segments {
		total += len(seg.Buf())
	}

	out := make([]byte, total)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(segments)-1))
	for i, seg := range segments {
		binary.LittleEndian.PutUint32(out[4+4*i:8+4*i], uint32(len(seg.Buf())/WordBytes))
	}

	pos := headerBytes
	for _, seg := range segments {
		copy(out[pos:], seg.Buf())
		pos += len(seg.Buf())
	}
	return out
}

// DecodeOfficial parses the standard stream framing and returns the
// reader-side root struct.
func DecodeOfficial(buf []byte) (UntypedStruct, error) {
	if len(buf) < 4 {
		return UntypedStruct{}, Encodingf("official framing: buffer too short for segment count")
	}
	segCount := int(binary.LittleEndian.Uint32(buf[0:4])) + 1
	headerWords := 1 + segCount
	headerBytes := headerWords * 4
	if headerBytes%WordBytes != 0 {
		headerBytes += 4
	}
	if len(buf) < headerBytes {
		return UntypedStruct{}, Encodingf("official framing: buffer too short for segment table")
	}

	lens := make([]int, segCount)
	for i := 0; i < segCount; i++ {
		lens[i] = int(binary.LittleEndian.Uint32(buf[4+4*i:8+4*i])) * WordBytes
	}

	segs := make([]*sharedSegment, segCount)
	pos := headerBytes
	for i, l := range lens {
		if pos+l > len(buf) {
			return UntypedStruct{}, Encodingf("official framing: segment %d overruns buffer", i)
		}
		segs[i] = &sharedSegment{buf: buf[pos : pos+l]}
		pos += l
	}
	wireSegmentsOther(segs)

	pointer, end, err := readPosFromRoot(segs[0]).StructPointer(0)
	if err != nil {
		return UntypedStruct{}, err
	}
	return NewUntypedStruct(pointer, end), nil
}

// wireSegmentsOther cross-links every decoded segment's other-segment
// table so far pointers naming any segment id in the stream resolve,
// regardless of which segment is read first.
func wireSegmentsOther(segs []*sharedSegment) {
	table := make(map[SegmentID]*sharedSegment, len(segs))
	for i, s := range segs {
		table[SegmentID(i)] = s
	}
	for _, s := range segs {
		s.other = table
	}
}

// EncodeAlternate serializes root using the id-tagged triple framing:
// repeated (segment id, byte length, bytes) records. The root's segment
// is always id 0.
func EncodeAlternate(root UntypedStructShared) []byte {
	segments := collectSegments(root)

	var total int
	for range segments {
		total += 4 + 4
	}
	for _, seg := range segments {
		total += len(seg.Buf())
	}

	out := make([]byte, 0, total)
	var hdr [8]byte
	for i, seg := range segments {
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(i))
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(seg.Buf())))
		out = append(out, hdr[:]...)
		out = append(out, seg.Buf()...)
	}
	return out
}

// DecodeAlternate parses the id-tagged triple framing. A duplicate
// segment id is ignored (the first occurrence wins); the root is always
// read from whichever segment was tagged id 0.
func DecodeAlternate(buf []byte) (UntypedStruct, error) {
	segs := make(map[SegmentID]*sharedSegment)
	pos := 0
	for pos < len(buf) {
		if pos+8 > len(buf) {
			return UntypedStruct{}, Encodingf("alternate framing: truncated record header")
		}
		id := SegmentID(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		size := int(binary.LittleEndian.Uint32(buf[pos+4 : pos+8]))
		pos += 8
		if pos+size > len(buf) {
			return UntypedStruct{}, Encodingf("alternate framing: segment %d overruns buffer", id)
		}
		if _, dup := segs[id]; !dup {
			segs[id] = &sharedSegment{buf: buf[pos : pos+size]}
		}
		pos += size
	}
	root, ok := segs[0]
	if !ok {
		return UntypedStruct{}, Encodingf("alternate framing: no segment 0 (root) present")
	}
	for _, s := range segs {
		s.other = segs
	}
	pointer, end, err := readPosFromRoot(root).StructPointer(0)
	if err != nil {
		return UntypedStruct{}, err
	}
	return NewUntypedStruct(pointer, end), nil
}
