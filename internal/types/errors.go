package types

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType matches every *UnsupportedTypeError via errors.Is.
var ErrUnsupportedType = errors.New("unsupported type")

// UnsupportedTypeError reports an abstract type the mapper cannot render.
type UnsupportedTypeError struct {
	Column string // offending column, empty when parsing a bare type
	Type   string // type as declared
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	msg := fmt.Sprintf("unsupported type %q", e.Type)
	if e.Column != "" {
		msg += fmt.Sprintf(" for column %s", e.Column)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is reports whether target is ErrUnsupportedType.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}
