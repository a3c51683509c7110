package wire

// FieldKind distinguishes the three shapes a struct field can take; it is
// the Kind of a FieldMeta (meta.go).
type FieldKind uint8

const (
	FieldPrimitive FieldKind = iota
	FieldPointer
	FieldUnion
)

// UnionMeta describes a tagged-union field: a discriminant at DiscOffset
// (in the data section, element-indexed as a u16) selecting one of
// Variants by its Discriminant value. VariantName returns an
// *UnknownDiscriminant error when the wire value names no known variant,
// which callers may choose to treat as "skip this message" for forward
// compatibility rather than a hard failure.
type UnionMeta struct {
	Name       string
	DiscOffset NumElements
	Variants   map[Discriminant]string
}

// Discriminant reads the union's tag from u.
func (m UnionMeta) Discriminant(u UntypedStruct) Discriminant {
	return u.UnionDiscriminant(m.DiscOffset)
}

// VariantName resolves d to its declared name, or reports
// UnknownDiscriminant if the schema this reader knows about doesn't have
// one. A writer on a newer schema version may legitimately produce a
// Discriminant unknown to an older reader; this is the hook where callers
// decide whether that's fatal.
func (m UnionMeta) VariantName(d Discriminant) (string, error) {
	name, ok := m.Variants[d]
	if !ok {
		return "", &UnknownDiscriminant{Value: d, Name: m.Name}
	}
	return name, nil
}

// SetDiscriminant is the builder-side counterpart, kept here next to
// UnionMeta rather than on UntypedStructBuilder so union wire layout
// stays colocated with its metadata.
func (m UnionMeta) SetDiscriminant(b UntypedStructBuilder, d Discriminant) {
	b.SetDiscriminant(m.DiscOffset, d)
}
