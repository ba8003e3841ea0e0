package orm

import (
	"fmt"
	"strings"

	"github.com/bitechdev/DataBrowser/pkg/types"
)

// BoundField is a field reached by a path from a root model.
type BoundField struct {
	Field    *Field
	Previous *BoundField

	FullPath   []string
	PrettyPath []string
	PathStr    string
}

// Bind extends previous (nil at the root) by f.
func (f *Field) Bind(previous *BoundField) *BoundField {
	b := &BoundField{Field: f, Previous: previous}
	if previous != nil {
		b.FullPath = append(append([]string{}, previous.FullPath...), f.Name)
		b.PrettyPath = append(append([]string{}, previous.PrettyPath...), f.PrettyName)
	} else {
		b.FullPath = []string{f.Name}
		b.PrettyPath = []string{f.PrettyName}
	}
	b.PathStr = strings.Join(b.FullPath, "__")
	return b
}

func (b *BoundField) Type() *types.Type { return b.Field.Type }
func (b *BoundField) Concrete() bool    { return b.Field.Concrete }
func (b *BoundField) CanPivot() bool    { return b.Field.CanPivot }
func (b *BoundField) IsAggregate() bool { return b.Field.IsAggregate() }

type join struct {
	alias string
	sql   string
}

// tableAlias is the alias of the table the field's column lives in.
func (b *BoundField) tableAlias() string {
	for p := b.Previous; p != nil; p = p.Previous {
		if p.Field.kind == kindRelation {
			return p.PathStr
		}
	}
	return b.Field.table
}

// joins lists the LEFT JOINs needed to reach the field, outermost first.
func (b *BoundField) joins() []join {
	var chain []*BoundField
	for p := b; p != nil; p = p.Previous {
		if p.Field.kind == kindRelation {
			chain = append([]*BoundField{p}, chain...)
		}
	}

	result := make([]join, 0, len(chain))
	for _, rel := range chain {
		result = append(result, join{
			alias: rel.PathStr,
			sql: fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
				quote(rel.Field.relTable), quote(rel.PathStr),
				quote(rel.PathStr), quote(rel.Field.relKey),
				quote(rel.tableAlias()), quote(rel.Field.foreignKey)),
		})
	}
	return result
}

// Expr renders the SQL expression selecting the field.
func (b *BoundField) Expr(dialect string) string {
	switch b.Field.kind {
	case kindColumn:
		return quote(b.tableAlias()) + "." + quote(b.Field.column)
	case kindFunction:
		return functionSQL(dialect, b.Field.fn, b.Previous.Expr(dialect))
	case kindAggregate:
		return aggregateSQL(b.Field.fn, b.Previous.Expr(dialect))
	}
	return "NULL"
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func isPostgres(dialect string) bool {
	return dialect == "postgres" || dialect == "pg"
}

var sqliteFormats = map[string]string{
	"year":   "%Y",
	"month":  "%m",
	"day":    "%d",
	"hour":   "%H",
	"minute": "%M",
	"second": "%S",
}

var postgresFields = map[string]string{
	"year":    "YEAR",
	"quarter": "QUARTER",
	"month":   "MONTH",
	"day":     "DAY",
	"hour":    "HOUR",
	"minute":  "MINUTE",
	"second":  "SECOND",
}

func functionSQL(dialect, fn, arg string) string {
	if isPostgres(dialect) {
		switch fn {
		case "date":
			return fmt.Sprintf("CAST(%s AS DATE)", arg)
		case "week_day":
			return fmt.Sprintf("(CAST(EXTRACT(DOW FROM %s) AS INTEGER) + 1)", arg)
		}
		return fmt.Sprintf("CAST(EXTRACT(%s FROM %s) AS INTEGER)", postgresFields[fn], arg)
	}

	switch fn {
	case "date":
		return fmt.Sprintf("date(%s)", arg)
	case "quarter":
		return fmt.Sprintf("((CAST(strftime('%%m', %s) AS INTEGER) + 2) / 3)", arg)
	case "week_day":
		return fmt.Sprintf("(CAST(strftime('%%w', %s) AS INTEGER) + 1)", arg)
	}
	return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", sqliteFormats[fn], arg)
}

func aggregateSQL(fn, arg string) string {
	switch fn {
	case "sum":
		return fmt.Sprintf("SUM(%s)", arg)
	case "average":
		return fmt.Sprintf("AVG(%s)", arg)
	case "min":
		return fmt.Sprintf("MIN(%s)", arg)
	case "max":
		return fmt.Sprintf("MAX(%s)", arg)
	}
	return fmt.Sprintf("COUNT(%s)", arg)
}
