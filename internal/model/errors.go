package model

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition matches every *InvalidDefinitionError via errors.Is.
var ErrInvalidDefinition = errors.New("invalid definition")

// InvalidDefinitionError reports a structural problem found while
// assembling a definition.
type InvalidDefinitionError struct {
	Field  string // dotted path of the offending field, e.g. "detail.foreign_key"
	Reason string
}

// Error implements the error interface.
func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid definition: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidDefinition.
func (e *InvalidDefinitionError) Is(target error) bool {
	return target == ErrInvalidDefinition
}

func invalid(field, format string, args ...any) *InvalidDefinitionError {
	return &InvalidDefinitionError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
