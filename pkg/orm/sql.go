package orm

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/types"
)

// Filter is a validated filter ready to be applied.
type Filter struct {
	Field  *BoundField
	Lookup string
	Value  interface{}
}

// Sort orders by a field.
type Sort struct {
	Field      *BoundField
	Descending bool
}

// Selection is everything the executor needs from a bound query.
type Selection struct {
	Model      *Model
	Fields     []*BoundField
	RowFields  []*BoundField
	ColFields  []*BoundField
	DataFields []*BoundField
	Filters    []Filter
	Sort       []Sort
	Limit      int
}

type selectBuilder struct {
	dialect string
	table   string
	fields  []*BoundField
	filters []Filter
	sort    []Sort
	limit   int
	// distinct groups by every selected field
	distinct bool
}

func (s *selectBuilder) build() (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	exprs := make([]string, len(s.fields))
	columns := make([]string, len(s.fields))
	aggregate := false
	for i, f := range s.fields {
		exprs[i] = f.Expr(s.dialect)
		columns[i] = fmt.Sprintf("%s AS %s", exprs[i], quote(f.PathStr))
		if f.IsAggregate() {
			aggregate = true
		}
	}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quote(s.table))

	seen := map[string]bool{}
	addJoins := func(b *BoundField) {
		for _, j := range b.joins() {
			if !seen[j.alias] {
				seen[j.alias] = true
				sb.WriteString(" ")
				sb.WriteString(j.sql)
			}
		}
	}
	for _, f := range s.fields {
		addJoins(f)
	}
	for _, f := range s.filters {
		addJoins(f.Field)
	}
	for _, o := range s.sort {
		addJoins(o.Field)
	}

	if len(s.filters) > 0 {
		clauses := make([]string, 0, len(s.filters))
		for _, f := range s.filters {
			clause, clauseArgs := filterSQL(s.dialect, f)
			clauses = append(clauses, clause)
			args = append(args, clauseArgs...)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	if aggregate || s.distinct {
		var group []string
		for i, f := range s.fields {
			if !f.IsAggregate() {
				group = append(group, exprs[i])
			}
		}
		if len(group) > 0 {
			sb.WriteString(" GROUP BY ")
			sb.WriteString(strings.Join(group, ", "))
		}
	}

	if len(s.sort) > 0 {
		orders := make([]string, len(s.sort))
		for i, o := range s.sort {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			orders[i] = o.Field.Expr(s.dialect) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if s.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", s.limit)
	}

	return sb.String(), args
}

func filterSQL(dialect string, f Filter) (string, []interface{}) {
	expr := f.Field.Expr(dialect)
	value := sqlValue(f.Field.Type(), f.Value)

	like := "LIKE"
	if isPostgres(dialect) {
		like = "ILIKE"
	}

	switch f.Lookup {
	case types.Equals, "exact":
		return expr + " = ?", []interface{}{value}
	case types.NotEquals:
		return fmt.Sprintf("(%s <> ? OR %s IS NULL)", expr, expr), []interface{}{value}
	case types.GT:
		return expr + " > ?", []interface{}{value}
	case types.GTE:
		return expr + " >= ?", []interface{}{value}
	case types.LT:
		return expr + " < ?", []interface{}{value}
	case types.LTE:
		return expr + " <= ?", []interface{}{value}
	case types.Contains:
		return fmt.Sprintf(`%s %s ? ESCAPE '\'`, expr, like), []interface{}{"%" + escapeLike(value) + "%"}
	case types.NotContains:
		return fmt.Sprintf(`(NOT %s %s ? ESCAPE '\' OR %s IS NULL)`, expr, like, expr), []interface{}{"%" + escapeLike(value) + "%"}
	case types.StartsWith:
		return fmt.Sprintf(`%s %s ? ESCAPE '\'`, expr, like), []interface{}{escapeLike(value) + "%"}
	case types.EndsWith:
		return fmt.Sprintf(`%s %s ? ESCAPE '\'`, expr, like), []interface{}{"%" + escapeLike(value)}
	case types.IsNull:
		if isNull, _ := f.Value.(bool); isNull {
			return expr + " IS NULL", nil
		}
		return expr + " IS NOT NULL", nil
	}
	return "1 = 1", nil
}

func sqlValue(t *types.Type, v interface{}) interface{} {
	dt, ok := v.(time.Time)
	if !ok {
		return v
	}
	if t == types.Date {
		return dt.Format(common.DateLayout)
	}
	return dt.UTC()
}

func escapeLike(v interface{}) string {
	s := fmt.Sprint(v)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
