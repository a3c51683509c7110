package wire

import "fmt"

// EncodingError reports a malformed pointer, undersized buffer, or
// otherwise wire-corrupt message encountered while decoding. It is never
// produced by the encoder: writers grow their segments as needed and never
// fail.
type EncodingError struct {
	msg string
}

func (e *EncodingError) Error() string { return "wire: encoding error: " + e.msg }

// Encodingf builds an *EncodingError with a formatted message.
func Encodingf(format string, args ...interface{}) *EncodingError {
	return &EncodingError{msg: fmt.Sprintf(format, args...)}
}

// UnknownDiscriminant is returned inside an otherwise successful decode
// when the wire names an enum enumerant or union variant the running
// schema does not recognize. It is distinct from EncodingError: the bytes
// were well-formed, just written by a newer schema.
type UnknownDiscriminant struct {
	Value Discriminant
	Name  string // the enum or union's name
}

func (e *UnknownDiscriminant) Error() string {
	return fmt.Sprintf("wire: unknown discriminant %d for %s", uint16(e.Value), e.Name)
}
