// Package types maps the abstract column types accepted in function
// definitions to PostgreSQL type tokens and typed NULL literals.
package types

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Kind is an abstract column type.
type Kind string

const (
	KindBigint      Kind = "bigint"
	KindInteger     Kind = "integer"
	KindSmallint    Kind = "smallint"
	KindNumeric     Kind = "numeric"
	KindVarchar     Kind = "varchar"
	KindText        Kind = "text"
	KindBoolean     Kind = "boolean"
	KindTimestamp   Kind = "timestamp"
	KindTimestamptz Kind = "timestamptz"
	KindDate        Kind = "date"
	KindUUID        Kind = "uuid"
	KindJSONB       Kind = "jsonb"
)

// EmptyJSONArray is the fallback literal for JSON columns. JSON columns
// default to an empty collection, never to NULL.
const EmptyJSONArray = "'[]'::jsonb"

type mapping struct {
	token     string // canonical token without modifiers
	oid       uint32
	modifiers int // max number of type modifiers accepted
}

var mappings = map[Kind]mapping{
	KindBigint:      {token: "bigint", oid: pgtype.Int8OID},
	KindInteger:     {token: "integer", oid: pgtype.Int4OID},
	KindSmallint:    {token: "smallint", oid: pgtype.Int2OID},
	KindNumeric:     {token: "numeric", oid: pgtype.NumericOID, modifiers: 2},
	KindVarchar:     {token: "character varying", oid: pgtype.VarcharOID, modifiers: 1},
	KindText:        {token: "text", oid: pgtype.TextOID},
	KindBoolean:     {token: "boolean", oid: pgtype.BoolOID},
	KindTimestamp:   {token: "timestamp without time zone", oid: pgtype.TimestampOID},
	KindTimestamptz: {token: "timestamp with time zone", oid: pgtype.TimestamptzOID},
	KindDate:        {token: "date", oid: pgtype.DateOID},
	KindUUID:        {token: "uuid", oid: pgtype.UUIDOID},
	KindJSONB:       {token: "jsonb", oid: pgtype.JSONBOID},
}

// aliases maps accepted spellings onto their abstract kind.
var aliases = map[string]Kind{
	"int8":                        KindBigint,
	"int":                         KindInteger,
	"int4":                        KindInteger,
	"int2":                        KindSmallint,
	"decimal":                     KindNumeric,
	"character varying":           KindVarchar,
	"string":                      KindVarchar,
	"bool":                        KindBoolean,
	"timestamp without time zone": KindTimestamp,
	"timestamp with time zone":    KindTimestamptz,
	"json":                        KindJSONB,
}

// Type is a resolved abstract type with its optional modifiers.
type Type struct {
	Kind      Kind
	Precision int // numeric precision, or varchar length
	Scale     int // numeric scale
}

// Common resolved types.
var (
	Bigint   = Type{Kind: KindBigint}
	Integer  = Type{Kind: KindInteger}
	Smallint = Type{Kind: KindSmallint}
	Text     = Type{Kind: KindText}
	Varchar  = Type{Kind: KindVarchar}
	Boolean  = Type{Kind: KindBoolean}
	JSONB    = Type{Kind: KindJSONB}
)

// Numeric returns a bounded decimal type.
func Numeric(precision, scale int) Type {
	return Type{Kind: KindNumeric, Precision: precision, Scale: scale}
}

// VarcharN returns a bounded variable-length string type.
func VarcharN(length int) Type {
	return Type{Kind: KindVarchar, Precision: length}
}

// Token returns the canonical type token used in a RETURNS declaration.
func (t Type) Token() string {
	m := mappings[t.Kind]
	switch {
	case t.Kind == KindNumeric && t.Precision > 0:
		return fmt.Sprintf("%s(%d,%d)", m.token, t.Precision, t.Scale)
	case t.Kind == KindVarchar && t.Precision > 0:
		return fmt.Sprintf("%s(%d)", m.token, t.Precision)
	}
	return m.token
}

// NullLiteral returns the expression representing a typed absence of value.
func (t Type) NullLiteral() string {
	if t.Kind == KindJSONB {
		return EmptyJSONArray
	}
	return "NULL::" + t.Token()
}

// OID returns the PostgreSQL type OID.
func (t Type) OID() uint32 {
	return mappings[t.Kind].oid
}

// IsJSON reports whether the type is a JSON document.
func (t Type) IsJSON() bool {
	return t.Kind == KindJSONB
}

// String returns the abstract textual form accepted by Parse.
func (t Type) String() string {
	switch {
	case t.Kind == KindNumeric && t.Precision > 0:
		return fmt.Sprintf("numeric(%d,%d)", t.Precision, t.Scale)
	case t.Kind == KindVarchar && t.Precision > 0:
		return fmt.Sprintf("varchar(%d)", t.Precision)
	}
	return string(t.Kind)
}

// IsValid reports whether the type is a supported kind with sane modifiers.
func (t Type) IsValid() bool {
	return t.check() == ""
}

func (t Type) check() string {
	m, ok := mappings[t.Kind]
	if !ok {
		return "unknown type"
	}
	if m.modifiers == 0 && (t.Precision != 0 || t.Scale != 0) {
		return "type does not accept modifiers"
	}
	switch t.Kind {
	case KindNumeric:
		if t.Precision < 0 || t.Precision > 1000 {
			return "numeric precision must be between 1 and 1000"
		}
		if t.Scale < 0 || (t.Precision > 0 && t.Scale > t.Precision) {
			return "numeric scale must be between 0 and precision"
		}
		if t.Precision == 0 && t.Scale != 0 {
			return "numeric scale requires a precision"
		}
	case KindVarchar:
		if t.Precision < 0 || t.Scale != 0 {
			return "varchar takes a single positive length"
		}
	}
	return ""
}

// typePattern splits "numeric(12, 2)" into name and modifiers.
var typePattern = regexp.MustCompile(`^([a-z][a-z0-9 ]*?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?$`)

// Parse resolves the textual form of an abstract type.
func Parse(s string) (Type, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(s), " "))
	matches := typePattern.FindStringSubmatch(normalized)
	if matches == nil {
		return Type{}, &UnsupportedTypeError{Type: s, Reason: "malformed type"}
	}

	kind := Kind(matches[1])
	if alias, ok := aliases[matches[1]]; ok {
		kind = alias
	}

	t := Type{Kind: kind}
	if matches[2] != "" {
		t.Precision, _ = strconv.Atoi(matches[2])
		if t.Precision == 0 {
			return Type{}, &UnsupportedTypeError{Type: s, Reason: "type modifier must be positive"}
		}
	}
	if matches[3] != "" {
		t.Scale, _ = strconv.Atoi(matches[3])
		if kind != KindNumeric {
			return Type{}, &UnsupportedTypeError{Type: s, Reason: "type takes at most one modifier"}
		}
	}

	if reason := t.check(); reason != "" {
		return Type{}, &UnsupportedTypeError{Type: s, Reason: reason}
	}
	return t, nil
}

// Map resolves the type declared for a column. Errors name the column.
func Map(column, s string) (Type, error) {
	t, err := Parse(s)
	if err != nil {
		ute := err.(*UnsupportedTypeError)
		ute.Column = column
		return Type{}, ute
	}
	return t, nil
}

// Kinds returns every supported kind in lexical order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(mappings))
	for k := range mappings {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Aliases returns the accepted alternative spellings for a kind, sorted.
func Aliases(kind Kind) []string {
	var names []string
	for name, k := range aliases {
		if k == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
