package render

import (
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/markb/pgfngen/internal/model"
)

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// keywords that cannot appear unquoted as column or table names.
var keywords = map[string]bool{
	"all": true, "and": true, "any": true, "array": true, "as": true, "asc": true,
	"case": true, "check": true, "column": true, "constraint": true, "create": true,
	"default": true, "desc": true, "distinct": true, "do": true, "else": true,
	"end": true, "false": true, "for": true, "foreign": true, "from": true,
	"grant": true, "group": true, "having": true, "in": true, "limit": true,
	"not": true, "null": true, "offset": true, "on": true, "or": true,
	"order": true, "primary": true, "references": true, "select": true,
	"table": true, "then": true, "to": true, "true": true, "union": true,
	"unique": true, "user": true, "using": true, "when": true, "where": true,
	"with": true,
}

// Ident renders an identifier, quoting it only when PostgreSQL would
// otherwise fold or reject it.
func Ident(name string) string {
	if plainIdent.MatchString(name) && !keywords[name] {
		return name
	}
	return pgx.Identifier{name}.Sanitize()
}

// QualifiedIdent renders "schema.name".
func QualifiedIdent(q model.QualifiedName) string {
	return Ident(q.Schema) + "." + Ident(q.Name)
}

// TextLiteral renders s as a text-typed string literal.
func TextLiteral(s string) string {
	return pq.QuoteLiteral(s) + "::text"
}
