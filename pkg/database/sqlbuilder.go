package database

import (
	"github.com/huandu/go-sqlbuilder"
)

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

func NewInsertBuilder(flavor sqlbuilder.Flavor) *InsertBuilder {
	return &InsertBuilder{flavor.NewInsertBuilder()}
}

func (ib *InsertBuilder) InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{ib.InsertBuilder.InsertInto(table)}
}

func (ib *InsertBuilder) Cols(col ...string) *InsertBuilder {
	return &InsertBuilder{ib.InsertBuilder.Cols(col...)}
}

func (ib *InsertBuilder) Values(value ...any) *InsertBuilder {
	return &InsertBuilder{ib.InsertBuilder.Values(value...)}
}

func (ib *InsertBuilder) Returning(col ...string) *InsertBuilder {
	return &InsertBuilder{ib.InsertBuilder.Returning(col...)}
}

type UpdateBuilder struct {
	*sqlbuilder.UpdateBuilder
}

func NewUpdateBuilder(flavor sqlbuilder.Flavor) *UpdateBuilder {
	return &UpdateBuilder{flavor.NewUpdateBuilder()}
}

type DeleteBuilder struct {
	*sqlbuilder.DeleteBuilder
}

func NewDeleteBuilder(flavor sqlbuilder.Flavor) *DeleteBuilder {
	return &DeleteBuilder{flavor.NewDeleteBuilder()}
}

type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

func NewSelectBuilder(flavor sqlbuilder.Flavor) *SelectBuilder {
	return &SelectBuilder{flavor.NewSelectBuilder()}
}

// WhereEquals adds one condition per column: nil matches NULL, a []any
// matches any of its values, anything else matches by equality.
func (sb *SelectBuilder) WhereEquals(filter map[string]any, columns []string) *SelectBuilder {
	for _, column := range columns {
		sb.Where(sb.condition(column, filter[column]))
	}
	return sb
}

// WhereNotEquals excludes rows matching all of filter.
func (sb *SelectBuilder) WhereNotEquals(filter map[string]any, columns []string) *SelectBuilder {
	if len(columns) == 0 {
		return sb
	}
	conds := make([]string, 0, len(columns))
	for _, column := range columns {
		conds = append(conds, sb.condition(column, filter[column]))
	}
	sb.Where(sb.Not(sb.And(conds...)))
	return sb
}

func (sb *SelectBuilder) condition(column string, value any) string {
	switch v := value.(type) {
	case nil:
		return sb.IsNull(column)
	case []any:
		return sb.In(column, v...)
	}
	return sb.Equal(column, value)
}
