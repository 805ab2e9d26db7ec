// Package inspect reads a rendered function artifact back into its parts:
// statement blocks, signature, RETURNS columns and not-found fallback
// entries. It understands the layout the renderer emits, not arbitrary
// SQL.
package inspect

import (
	"fmt"
	"regexp"
	"strings"
)

// Arg is a function parameter.
type Arg struct {
	Name string
	Type string
}

// Column is a RETURNS TABLE column.
type Column struct {
	Name string
	Type string
}

// FallbackEntry is one value of the not-found branch with its marker.
type FallbackEntry struct {
	Literal string
	Marker  string
}

// Summary is the parsed form of one artifact.
type Summary struct {
	Function     string // schema-qualified name as written
	DropArgTypes []string
	Args         []Arg
	Returns      []Column
	Fallback     []FallbackEntry
	Body         string
	Owner        string
	Grantee      string
}

var (
	createPattern = regexp.MustCompile(`(?i)CREATE\s+(?:OR\s+REPLACE\s+)?FUNCTION\s+([\w."]+)\s*\(`)
	dropPattern   = regexp.MustCompile(`(?is)^DROP\s+FUNCTION\s+(?:IF\s+EXISTS\s+)?([\w."]+)\s*\((.*)\)$`)
	ownerPattern  = regexp.MustCompile(`(?is)^ALTER\s+FUNCTION\s+([\w."]+)\s*\((.*)\)\s+OWNER\s+TO\s+(\S+)$`)
	grantPattern  = regexp.MustCompile(`(?is)^GRANT\s+EXECUTE\s+ON\s+FUNCTION\s+([\w."]+)\s*\((.*)\)\s+TO\s+(\S+)$`)
	returnsTable  = regexp.MustCompile(`(?i)RETURNS\s+TABLE\s*\(`)
	dollarPattern = regexp.MustCompile(`\$(\w*)\$`)
	fallbackLine  = regexp.MustCompile(`^\s*(.*\S)\s+--\s+(.*?)\s*$`)
)

// IsCreateFunction checks if SQL contains a CREATE FUNCTION statement.
func IsCreateFunction(sql string) bool {
	return createPattern.MatchString(sql)
}

// Inspect parses an artifact. Blocks must appear in the order DROP,
// CREATE, OWNERSHIP, GRANT.
func Inspect(sql string) (*Summary, error) {
	sql = strings.TrimSpace(sql)
	if !IsCreateFunction(sql) {
		return nil, fmt.Errorf("missing CREATE FUNCTION statement")
	}

	loc := createPattern.FindStringSubmatchIndex(sql)

	s := &Summary{Function: sql[loc[2]:loc[3]]}

	// DROP precedes CREATE.
	drop := strings.TrimSuffix(strings.TrimSpace(sql[:loc[0]]), ";")
	m := dropPattern.FindStringSubmatch(drop)
	if m == nil {
		return nil, fmt.Errorf("missing DROP FUNCTION statement before CREATE")
	}
	if m[1] != s.Function {
		return nil, fmt.Errorf("DROP targets %s, CREATE defines %s", m[1], s.Function)
	}
	s.DropArgTypes = splitTypes(m[2])

	// Arguments
	argsStr, end, err := matchParen(sql, loc[1]-1)
	if err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	if s.Args, err = parseArguments(argsStr); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}

	// RETURNS TABLE
	rest := sql[end+1:]
	rloc := returnsTable.FindStringIndex(rest)
	if rloc == nil {
		return nil, fmt.Errorf("missing RETURNS TABLE clause")
	}
	colsStr, _, err := matchParen(rest, rloc[1]-1)
	if err != nil {
		return nil, fmt.Errorf("parse RETURNS TABLE: %w", err)
	}
	cols, err := parseArguments(colsStr)
	if err != nil {
		return nil, fmt.Errorf("parse RETURNS TABLE: %w", err)
	}
	for _, c := range cols {
		s.Returns = append(s.Returns, Column(c))
	}

	// Body
	body, after, err := extractDollarQuotedBody(rest)
	if err != nil {
		return nil, fmt.Errorf("extract body: %w", err)
	}
	s.Body = strings.TrimSpace(body)
	s.Fallback = parseFallback(s.Body)

	// OWNERSHIP and GRANT follow CREATE.
	var stmts []string
	for _, stmt := range strings.Split(after, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	if len(stmts) != 2 {
		return nil, fmt.Errorf("expected OWNERSHIP and GRANT after CREATE, found %d statements", len(stmts))
	}
	om := ownerPattern.FindStringSubmatch(stmts[0])
	if om == nil {
		return nil, fmt.Errorf("expected ALTER FUNCTION ... OWNER TO, got %q", firstLine(stmts[0]))
	}
	gm := grantPattern.FindStringSubmatch(stmts[1])
	if gm == nil {
		return nil, fmt.Errorf("expected GRANT EXECUTE ON FUNCTION, got %q", firstLine(stmts[1]))
	}
	s.Owner, s.Grantee = om[3], gm[3]

	return s, nil
}

// Problems reports structural inconsistencies in a parsed artifact.
func (s *Summary) Problems() []string {
	var problems []string

	argTypes := make([]string, len(s.Args))
	for i, a := range s.Args {
		argTypes[i] = a.Type
	}
	if strings.Join(argTypes, ", ") != strings.Join(s.DropArgTypes, ", ") {
		problems = append(problems, fmt.Sprintf("DROP signature (%s) differs from CREATE (%s)",
			strings.Join(s.DropArgTypes, ", "), strings.Join(argTypes, ", ")))
	}

	if len(s.Returns) != len(s.Fallback) {
		problems = append(problems, fmt.Sprintf("RETURNS has %d columns, fallback has %d entries", len(s.Returns), len(s.Fallback)))
	}
	for i := 0; i < len(s.Returns) && i < len(s.Fallback); i++ {
		if s.Returns[i].Name != s.Fallback[i].Marker {
			problems = append(problems, fmt.Sprintf("position %d: RETURNS %s, fallback marker %s",
				i+1, s.Returns[i].Name, s.Fallback[i].Marker))
		}
	}

	if s.Owner != s.Grantee {
		problems = append(problems, fmt.Sprintf("owner %s differs from grantee %s", s.Owner, s.Grantee))
	}
	return problems
}

// parseFallback collects the marked entries of the not-found branch, the
// SELECT following ELSE.
func parseFallback(body string) []FallbackEntry {
	var entries []FallbackEntry
	inElse := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(trimmed, "ELSE"):
			inElse = true
		case !inElse:
		case trimmed == ";" || strings.HasPrefix(strings.ToUpper(trimmed), "END IF"):
			return entries
		default:
			if m := fallbackLine.FindStringSubmatch(line); m != nil {
				entries = append(entries, FallbackEntry{Literal: strings.TrimSuffix(m[1], ","), Marker: m[2]})
			}
		}
	}
	return entries
}

// parseArguments parses "name type, name type" lists.
func parseArguments(argsStr string) ([]Arg, error) {
	var args []Arg
	for _, part := range splitArgs(argsStr) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ := splitIdent(part)
		if name == "" || typ == "" {
			return nil, fmt.Errorf("invalid argument: %q", part)
		}
		args = append(args, Arg{Name: unquoteIdent(name), Type: strings.Join(strings.Fields(typ), " ")})
	}
	return args, nil
}

func splitTypes(s string) []string {
	var out []string
	for _, part := range splitArgs(s) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitArgs splits on top-level commas, respecting parentheses of types
// like numeric(12,2).
func splitArgs(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				result = append(result, current.String())
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// matchParen returns the text inside the parenthesis opening at open and
// the index of its closing parenthesis.
func matchParen(s string, open int) (string, int, error) {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return "", 0, fmt.Errorf("expected '(' at offset %d", open)
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[open+1 : i], i, nil
			}
		}
	}
	return "", 0, fmt.Errorf("unbalanced parentheses")
}

// extractDollarQuotedBody extracts the body from $$ ... $$ or $tag$ ... $tag$
// and returns the text following the closing delimiter.
func extractDollarQuotedBody(sql string) (body, after string, err error) {
	open := dollarPattern.FindStringSubmatchIndex(sql)
	if open == nil {
		return "", "", fmt.Errorf("missing dollar-quoted body")
	}
	delim := sql[open[0]:open[1]]

	closeIdx := strings.Index(sql[open[1]:], delim)
	if closeIdx < 0 {
		return "", "", fmt.Errorf("unclosed dollar quote")
	}
	bodyEnd := open[1] + closeIdx
	return sql[open[1]:bodyEnd], sql[bodyEnd+len(delim):], nil
}

// splitIdent splits a leading identifier, quoted or bare, from the rest.
func splitIdent(s string) (ident, rest string) {
	if strings.HasPrefix(s, `"`) {
		for i := 1; i < len(s); i++ {
			if s[i] != '"' {
				continue
			}
			if i+1 < len(s) && s[i+1] == '"' {
				i++
				continue
			}
			return s[:i+1], strings.TrimSpace(s[i+1:])
		}
		return "", ""
	}
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

// unquoteIdent strips double quotes from a quoted identifier.
func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
