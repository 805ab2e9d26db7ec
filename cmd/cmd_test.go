package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crewYAML = `
functions:
  - archetype: list
    table:
      name: crew_hdr
      audit: {created_by: true, updated_by: true}
      columns:
        - {name: id, type: bigint}
        - {name: org_id, type: bigint}
        - {name: name, type: varchar(100)}
    params:
      - {name: p_org_id, type: bigint, column: org_id}
  - archetype: single
    table:
      name: crew_hdr
      columns:
        - {name: id, type: bigint}
    detail:
      table: crew_dtl
      foreign_key: crew_hdr_id
      columns:
        - {name: crew_hdr_id, type: bigint}
        - {name: seq, type: smallint}
    params:
      - {name: p_id, type: bigint, column: id}
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		generateCmd.Flags().Set("output", "")
		rootCmd.PersistentFlags().Set("log-level", "warn")
	})
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGenerate_Stdin(t *testing.T) {
	out, _, err := run(t, crewYAML, "generate")
	require.NoError(t, err)

	assert.Contains(t, out, "CREATE OR REPLACE FUNCTION public.crew_hdr_list(")
	assert.Contains(t, out, "CREATE OR REPLACE FUNCTION public.crew_hdr_get(")
	assert.Less(t, strings.Index(out, "crew_hdr_list"), strings.Index(out, "crew_hdr_get"))
}

func TestGenerate_OutputFile(t *testing.T) {
	in := writeFile(t, "crew.yaml", crewYAML)
	outPath := filepath.Join(t.TempDir(), "crew.sql")

	out, _, err := run(t, "", "generate", in, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 2 functions")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "DROP FUNCTION IF EXISTS public.crew_hdr_list(bigint);"))
}

func TestGenerate_LogsToStderr(t *testing.T) {
	out, errOut, err := run(t, crewYAML, "--log-level", "info", "generate")
	require.NoError(t, err)
	assert.NotContains(t, out, "functions generated")
	assert.Contains(t, errOut, "functions generated")
	assert.Contains(t, errOut, "count=2")
}

func TestGenerate_ParamCollision(t *testing.T) {
	doc := "archetype: list\ntable: {name: crew_hdr, columns: [{name: id, type: bigint}, {name: org_id, type: bigint}]}\n" +
		"params: [{name: org_id, column: org_id}]\n"

	out, _, err := run(t, doc, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "params[0].name")
	assert.Empty(t, out)
}

func TestGenerate_Principal(t *testing.T) {
	t.Setenv("PGFNGEN_PRINCIPAL", "app_owner")

	out, _, err := run(t, crewYAML, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "OWNER TO app_owner;")
	assert.NotContains(t, out, "postgres")
}

func TestGenerate_FailureWritesNothing(t *testing.T) {
	doc := crewYAML + `
  - archetype: single
    name: crew_wild
    table:
      name: crew_hdr
      columns: [{name: id, type: bigint}]
    detail:
      table: crew_dtl
      foreign_key: crew_hdr_id
      columns: "*"
`
	out, errOut, err := run(t, doc, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 definitions failed")
	assert.Empty(t, out)
	assert.Contains(t, errOut, "public.crew_wild")
}

func TestGenerate_UnsupportedType(t *testing.T) {
	doc := "archetype: list\ntable: {name: t, columns: [{name: id, type: bigint}, {name: shape, type: geometry}]}\n"

	out, _, err := run(t, doc, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape")
	assert.Empty(t, out)
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, crewYAML, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "2 definitions conform")

	wild := "archetype: single\ntable: {name: h, columns: [{name: id, type: bigint}]}\n" +
		"detail: {table: d, foreign_key: h_id, columns: \"*\"}\n"
	out, _, err = run(t, wild, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "FUNCTION")
	assert.Contains(t, out, "R4")
}

func TestInspect(t *testing.T) {
	sql, _, err := run(t, crewYAML, "generate")
	require.NoError(t, err)
	first := sql[:strings.Index(sql, "DROP FUNCTION IF EXISTS public.crew_hdr_get")]
	path := writeFile(t, "crew.sql", first)

	out, _, err := run(t, "", "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Function: public.crew_hdr_list(p_org_id bigint)")
	assert.Contains(t, out, "updated_by_name")
	assert.NotContains(t, out, "Problems:")
}

func TestTypes(t *testing.T) {
	out, _, err := run(t, "", "types")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "'[]'::jsonb")
	assert.Contains(t, out, "int8")
}
