package render_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/pgfngen/internal/archetype"
	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/render"
)

var settings = render.Settings{
	Principal: "postgres",
	UserTable: model.QualifiedName{Schema: "public", Name: "users"},
	UserKey:   "id",
	UserName:  "user_name",
}

func crewHeader() *model.TableBuilder {
	return model.NewTable("crew_hdr").
		Column("id", "bigint").
		Column("org_id", "bigint").
		Column("name", "varchar(100)").
		Audit(true, true)
}

func listPlan(t *testing.T) *render.Plan {
	t.Helper()
	fn, err := model.NewFunction(model.KindList).
		On(crewHeader()).
		Param("p_org_id", "bigint", "org_id").
		Build()
	require.NoError(t, err)

	p, err := archetype.List{}.Plan(fn, settings)
	require.NoError(t, err)
	return p
}

func singlePlan(t *testing.T) *render.Plan {
	t.Helper()
	fn, err := model.NewFunction(model.KindSingleRowWithDetail).
		On(crewHeader()).
		WithDetail(model.NewDetail("crew_dtl").
			Column("id", "bigint").
			Column("crew_hdr_id", "bigint").
			Column("member_name", "varchar(100)").
			Column("seq", "smallint").
			ForeignKey("crew_hdr_id").
			SortBy("seq").
			Audit(true, true)).
		Param("p_id", "bigint", "id").
		Build()
	require.NoError(t, err)

	p, err := archetype.SingleRowWithDetail{}.Plan(fn, settings)
	require.NoError(t, err)
	return p
}

const wantList = `DROP FUNCTION IF EXISTS public.crew_hdr_list(bigint);

CREATE OR REPLACE FUNCTION public.crew_hdr_list(
    p_org_id bigint
)
RETURNS TABLE (
    status boolean,
    msg text,
    id bigint,
    org_id bigint,
    name character varying(100),
    created_by_name text,
    updated_by_name text
)
LANGUAGE plpgsql
AS $function$
BEGIN
    IF EXISTS (
        SELECT 1
        FROM public.crew_hdr t
        WHERE t.org_id = p_org_id
    ) THEN
        RETURN QUERY
        SELECT
            true,
            'Data found'::text,
            t.id,
            t.org_id,
            t.name,
            cu.user_name::text,
            uu.user_name::text
        FROM public.crew_hdr t
        LEFT JOIN public.users cu ON cu.id = t.created_by
        LEFT JOIN public.users uu ON uu.id = t.updated_by
        WHERE t.org_id = p_org_id
        ORDER BY t.id;
    ELSE
        RETURN QUERY
        SELECT
            false, -- status
            'No data found'::text, -- msg
            NULL::bigint, -- id
            NULL::bigint, -- org_id
            NULL::character varying(100), -- name
            NULL::text, -- created_by_name
            NULL::text -- updated_by_name
        ;
    END IF;
END;
$function$;

ALTER FUNCTION public.crew_hdr_list(bigint) OWNER TO postgres;

GRANT EXECUTE ON FUNCTION public.crew_hdr_list(bigint) TO postgres;
`

func TestRender_List(t *testing.T) {
	got := render.Render(listPlan(t)).String()
	if diff := cmp.Diff(wantList, got); diff != "" {
		t.Errorf("rendered list function mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_SingleRowWithDetail(t *testing.T) {
	a := render.Render(singlePlan(t))
	create, ok := a.Block(render.BlockCreate)
	require.True(t, ok)

	assert.Contains(t, create.SQL, "    crew_dtl jsonb\n)")
	assert.Contains(t, create.SQL, `            COALESCE((
                SELECT jsonb_agg(jsonb_build_object(
                    'id', d.id,
                    'crew_hdr_id', d.crew_hdr_id,
                    'member_name', d.member_name,
                    'seq', d.seq,
                    'created_by_name', dcu.user_name::text,
                    'updated_by_name', duu.user_name::text
                ) ORDER BY d.seq)
                FROM public.crew_dtl d
                LEFT JOIN public.users dcu ON dcu.id = d.created_by
                LEFT JOIN public.users duu ON duu.id = d.updated_by
                WHERE d.crew_hdr_id = t.id
            ), '[]'::jsonb)
        FROM public.crew_hdr t`)
	assert.Contains(t, create.SQL, "        ORDER BY t.id\n        LIMIT 1;\n")
	assert.Contains(t, create.SQL, "            NULL::text, -- updated_by_name\n            '[]'::jsonb -- crew_dtl\n        ;\n")
}

func TestRender_Deterministic(t *testing.T) {
	for _, build := range []func(*testing.T) *render.Plan{listPlan, singlePlan} {
		first := render.Render(build(t)).String()
		second := render.Render(build(t)).String()
		assert.Equal(t, first, second)
	}
}

func TestRender_BlockOrder(t *testing.T) {
	a := render.Render(singlePlan(t))
	var kinds []render.BlockKind
	for _, b := range a.Blocks {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []render.BlockKind{
		render.BlockDrop, render.BlockCreate, render.BlockOwnership, render.BlockGrant,
	}, kinds)
	assert.Equal(t, "public.crew_hdr_get", a.Function.String())
}

func TestRender_NoParams(t *testing.T) {
	fn, err := model.NewFunction(model.KindList).
		On(model.NewTable("ops.codes").Column("id", "integer")).
		Build()
	require.NoError(t, err)
	p, err := archetype.List{}.Plan(fn, settings)
	require.NoError(t, err)

	out := render.Render(p).String()
	assert.Contains(t, out, "DROP FUNCTION IF EXISTS ops.codes_list();")
	assert.Contains(t, out, "CREATE OR REPLACE FUNCTION ops.codes_list()\nRETURNS TABLE (")
	assert.NotContains(t, out, "WHERE")
	assert.NotContains(t, out, "LEFT JOIN")
}

func TestRender_QuotesIdentifiersAndMessages(t *testing.T) {
	fn, err := model.NewFunction(model.KindList).
		Name("Reports.OrderList").
		On(model.NewTable("orders").Column("id", "bigint").Column("order", "integer")).
		Param("p_order", "integer", "order").
		Messages("Found", "Nothing's here").
		Build()
	require.NoError(t, err)
	p, err := archetype.List{}.Plan(fn, settings)
	require.NoError(t, err)

	out := render.Render(p).String()
	assert.Contains(t, out, `"Reports"."OrderList"(integer)`)
	assert.Contains(t, out, `    "order" integer`)
	assert.Contains(t, out, `WHERE t."order" = p_order`)
	assert.Contains(t, out, `'Nothing''s here'::text, -- msg`)
}

func TestIdent(t *testing.T) {
	assert.Equal(t, "crew_hdr", render.Ident("crew_hdr"))
	assert.Equal(t, `"user"`, render.Ident("user"))
	assert.Equal(t, `"CamelCase"`, render.Ident("CamelCase"))
	assert.Equal(t, `"has space"`, render.Ident("has space"))
	assert.Equal(t, `"odd""quote"`, render.Ident(`odd"quote`))
}

func TestAuditJoins(t *testing.T) {
	joins, outputs := render.AuditJoins(render.HeaderAlias, true, false, settings)
	require.Len(t, joins, 1)
	require.Len(t, outputs, 1)
	assert.Equal(t, "cu", joins[0].Alias)
	assert.Equal(t, "cu.id = t.created_by", joins[0].On)
	assert.Equal(t, model.CreatedByNameColumn, outputs[0].Name)

	joins, _ = render.AuditJoins(render.DetailAlias, false, true, settings)
	require.Len(t, joins, 1)
	assert.Equal(t, "duu", joins[0].Alias)

	joins, outputs = render.AuditJoins(render.HeaderAlias, false, false, settings)
	assert.Empty(t, joins)
	assert.Empty(t, outputs)
}

func TestBasePlan_Parity(t *testing.T) {
	p := listPlan(t)
	require.Equal(t, len(p.Outputs), len(p.Fallback))
	for i := range p.Outputs {
		assert.Equal(t, p.Outputs[i].Name, p.Fallback[i].Column)
	}
	assert.Equal(t, []string{"bigint"}, p.ParamTypes())
	assert.True(t, strings.HasPrefix(p.Fallback[1].Literal, "'No data found'"))
}
