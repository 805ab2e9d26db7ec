package model

import "strings"

// DefaultSchema is assumed for unqualified names.
const DefaultSchema = "public"

// QualifiedName is a schema-qualified object name.
type QualifiedName struct {
	Schema string
	Name   string
}

// ParseQualifiedName splits "schema.name". Unqualified names land in
// DefaultSchema.
func ParseQualifiedName(s string) QualifiedName {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return QualifiedName{Schema: s[:i], Name: s[i+1:]}
	}
	return QualifiedName{Schema: DefaultSchema, Name: s}
}

// String returns "schema.name".
func (q QualifiedName) String() string {
	return q.Schema + "." + q.Name
}

// IsZero reports whether the name is empty.
func (q QualifiedName) IsZero() bool {
	return q.Name == ""
}
