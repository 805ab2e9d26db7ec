package render

import (
	"fmt"

	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/types"
)

// AuditJoins expands the created_by / updated_by columns of the table
// aliased as alias into user lookups. Each lookup is a LEFT JOIN so a
// missing user never suppresses the row. The returned outputs carry the
// resolved display names.
func AuditJoins(alias string, createdBy, updatedBy bool, s Settings) ([]Join, []Output) {
	var joins []Join
	var outputs []Output

	add := func(column, output, userAlias string) {
		joins = append(joins, Join{
			Table: s.UserTable,
			Alias: userAlias,
			On: fmt.Sprintf("%s.%s = %s.%s",
				userAlias, Ident(s.UserKey), alias, Ident(column)),
		})
		outputs = append(outputs, Output{
			Name: output,
			Type: types.Text,
			Expr: fmt.Sprintf("%s.%s::text", userAlias, Ident(s.UserName)),
		})
	}

	prefix := ""
	if alias != HeaderAlias {
		prefix = alias
	}
	if createdBy {
		add(model.CreatedByColumn, model.CreatedByNameColumn, prefix+"cu")
	}
	if updatedBy {
		add(model.UpdatedByColumn, model.UpdatedByNameColumn, prefix+"uu")
	}
	return joins, outputs
}
