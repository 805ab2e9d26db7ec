// Package render emits the SQL text of a generated query function from
// its Plan. Rendering is pure and deterministic: the same plan always
// yields byte-identical text.
package render

import (
	"fmt"
	"strings"

	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/types"
)

// BlockKind identifies a statement block of an artifact.
type BlockKind string

const (
	BlockDrop      BlockKind = "drop"
	BlockCreate    BlockKind = "create"
	BlockOwnership BlockKind = "ownership"
	BlockGrant     BlockKind = "grant"
)

// Block is one SQL statement of an artifact.
type Block struct {
	Kind BlockKind
	SQL  string
}

// Artifact is the rendered output for one function: DROP, CREATE,
// OWNERSHIP and GRANT blocks, in that order.
type Artifact struct {
	Function  model.QualifiedName
	Archetype model.Kind
	Blocks    []Block
}

// Block returns the block of the given kind.
func (a *Artifact) Block(kind BlockKind) (Block, bool) {
	for _, b := range a.Blocks {
		if b.Kind == kind {
			return b, true
		}
	}
	return Block{}, false
}

// String joins the blocks into a single document.
func (a *Artifact) String() string {
	parts := make([]string, len(a.Blocks))
	for i, b := range a.Blocks {
		parts[i] = b.SQL
	}
	return strings.Join(parts, "\n\n") + "\n"
}

const indentUnit = "    "

// Render produces the artifact for a conformant plan.
func Render(p *Plan) *Artifact {
	signature := fmt.Sprintf("%s(%s)", QualifiedIdent(p.Function), strings.Join(p.ParamTypes(), ", "))

	return &Artifact{
		Function:  p.Function,
		Archetype: p.Archetype,
		Blocks: []Block{
			{Kind: BlockDrop, SQL: fmt.Sprintf("DROP FUNCTION IF EXISTS %s;", signature)},
			{Kind: BlockCreate, SQL: renderCreate(p)},
			{Kind: BlockOwnership, SQL: fmt.Sprintf("ALTER FUNCTION %s OWNER TO %s;", signature, Ident(p.Owner))},
			{Kind: BlockGrant, SQL: fmt.Sprintf("GRANT EXECUTE ON FUNCTION %s TO %s;", signature, Ident(p.Grantee))},
		},
	}
}

func renderCreate(p *Plan) string {
	var sb strings.Builder

	sb.WriteString("CREATE OR REPLACE FUNCTION ")
	sb.WriteString(QualifiedIdent(p.Function))
	if len(p.Params) == 0 {
		sb.WriteString("()\n")
	} else {
		sb.WriteString("(\n")
		params := make([]string, len(p.Params))
		for i, param := range p.Params {
			params[i] = Ident(param.Name) + " " + param.Type.Token()
		}
		writeList(&sb, params, indentUnit)
		sb.WriteString(")\n")
	}

	sb.WriteString("RETURNS TABLE (\n")
	columns := make([]string, len(p.Outputs))
	for i, out := range p.Outputs {
		columns[i] = Ident(out.Name) + " " + out.Type.Token()
	}
	writeList(&sb, columns, indentUnit)
	sb.WriteString(")\n")

	sb.WriteString("LANGUAGE plpgsql\n")
	sb.WriteString("AS $function$\n")
	sb.WriteString("BEGIN\n")

	body := indentUnit
	branch := body + indentUnit
	from := fmt.Sprintf("FROM %s %s", QualifiedIdent(p.Table), HeaderAlias)
	where := whereClause(p.Filters)

	// Guard
	sb.WriteString(body + "IF EXISTS (\n")
	sb.WriteString(branch + "SELECT 1\n")
	sb.WriteString(branch + from + "\n")
	if where != "" {
		sb.WriteString(branch + where + "\n")
	}
	sb.WriteString(body + ") THEN\n")

	// Found branch
	sb.WriteString(branch + "RETURN QUERY\n")
	sb.WriteString(branch + "SELECT\n")
	exprs := make([]string, len(p.Outputs))
	for i, out := range p.Outputs {
		if out.Subquery != nil {
			exprs[i] = renderSubquery(out.Subquery)
		} else {
			exprs[i] = out.Expr
		}
	}
	writeList(&sb, exprs, branch+indentUnit)
	sb.WriteString(branch + from + "\n")
	for _, j := range p.Joins {
		sb.WriteString(branch + renderJoin(j) + "\n")
	}
	if where != "" {
		sb.WriteString(branch + where + "\n")
	}
	sb.WriteString(branch + fmt.Sprintf("ORDER BY %s.%s", HeaderAlias, Ident(p.SortColumn)))
	if p.Limit > 0 {
		sb.WriteString(fmt.Sprintf("\n%sLIMIT %d", branch, p.Limit))
	}
	sb.WriteString(";\n")

	// Not-found branch. Every entry carries a trailing marker comment, so
	// the terminator always sits on its own line after the final entry.
	sb.WriteString(body + "ELSE\n")
	sb.WriteString(branch + "RETURN QUERY\n")
	sb.WriteString(branch + "SELECT\n")
	for i, fb := range p.Fallback {
		sb.WriteString(branch + indentUnit + fb.Literal)
		if i < len(p.Fallback)-1 {
			sb.WriteString(",")
		}
		sb.WriteString(" -- " + fb.Column + "\n")
	}
	sb.WriteString(branch + ";\n")
	sb.WriteString(body + "END IF;\n")

	sb.WriteString("END;\n")
	sb.WriteString("$function$;")

	return sb.String()
}

// renderSubquery renders the aggregated JSON column. Lines after the first
// are indented relative to the expression start.
func renderSubquery(q *JSONSubquery) string {
	var sb strings.Builder
	a := q.Alias

	sb.WriteString("COALESCE((\n")
	order := fmt.Sprintf(" ORDER BY %s.%s", a, Ident(q.SortColumn))
	if q.Wildcard {
		sb.WriteString(indentUnit + fmt.Sprintf("SELECT jsonb_agg(to_jsonb(%s)%s)\n", a, order))
	} else {
		sb.WriteString(indentUnit + "SELECT jsonb_agg(jsonb_build_object(\n")
		members := make([]string, 0, len(q.Columns)+len(q.Extra))
		for _, col := range q.Columns {
			members = append(members, fmt.Sprintf("%s, %s.%s", quoteKey(col), a, Ident(col)))
		}
		for _, extra := range q.Extra {
			members = append(members, fmt.Sprintf("%s, %s", quoteKey(extra.Name), extra.Expr))
		}
		writeList(&sb, members, indentUnit+indentUnit)
		sb.WriteString(indentUnit + ")" + order + ")\n")
	}
	sb.WriteString(indentUnit + fmt.Sprintf("FROM %s %s\n", QualifiedIdent(q.Table), a))
	for _, j := range q.Joins {
		sb.WriteString(indentUnit + renderJoin(j) + "\n")
	}
	sb.WriteString(indentUnit + fmt.Sprintf("WHERE %s.%s = %s.%s\n", a, Ident(q.ForeignKey), HeaderAlias, Ident(q.ParentKey)))
	sb.WriteString("), " + types.EmptyJSONArray + ")")

	return sb.String()
}

func renderJoin(j Join) string {
	return fmt.Sprintf("LEFT JOIN %s %s ON %s", QualifiedIdent(j.Table), j.Alias, j.On)
}

func whereClause(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}
	preds := make([]string, len(filters))
	for i, f := range filters {
		preds[i] = fmt.Sprintf("%s.%s = %s", HeaderAlias, Ident(f.Column), Ident(f.Param))
	}
	return "WHERE " + strings.Join(preds, " AND ")
}

func quoteKey(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// writeList writes items one per line, comma separated, each line of a
// (possibly multi-line) item prefixed with indent.
func writeList(sb *strings.Builder, items []string, indent string) {
	for i, item := range items {
		lines := strings.Split(item, "\n")
		for j, line := range lines {
			sb.WriteString(indent + line)
			if j < len(lines)-1 {
				sb.WriteString("\n")
			}
		}
		if i < len(items)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
}
