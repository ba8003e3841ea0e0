package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bitechdev/DataBrowser/pkg/orm"
)

// BoundField is a selected field resolved against model metadata.
type BoundField struct {
	Orm       *orm.BoundField
	Pivoted   bool
	Direction string
	Priority  *int
}

func (f *BoundField) Path() []string       { return f.Orm.FullPath }
func (f *BoundField) PrettyPath() []string { return f.Orm.PrettyPath }
func (f *BoundField) PathStr() string      { return f.Orm.PathStr }

// BoundFilter is a filter resolved against model metadata. Orm is nil when
// the path did not resolve, in which case ErrMessage says why.
type BoundFilter struct {
	Orm        *orm.BoundField
	Lookup     string
	Value      string
	Parsed     interface{}
	ErrMessage string

	path []string
}

func (f *BoundFilter) Path() []string {
	if f.Orm != nil {
		return f.Orm.FullPath
	}
	return f.path
}

func (f *BoundFilter) PrettyPath() []string {
	if f.Orm != nil {
		return f.Orm.PrettyPath
	}
	return f.path
}

func (f *BoundFilter) PathStr() string {
	return strings.Join(f.Path(), "__")
}

// IsValid reports whether the filter takes part in execution.
func (f *BoundFilter) IsValid() bool {
	return f.Orm != nil && f.ErrMessage == ""
}

// BoundQuery is a query checked against the models. Binding never fails:
// bad fields are dropped and bad filters carry an error message.
type BoundQuery struct {
	ModelName string
	Fields    []*BoundField
	Filters   []*BoundFilter
	Limit     int

	model *orm.Model
}

// resolve walks parts from the model. An empty message means success.
func resolve(models orm.Models, modelName string, parts []string) (*orm.BoundField, string) {
	var bound *orm.BoundField
	for _, part := range parts {
		model, ok := models[modelName]
		if modelName == "" || !ok {
			return nil, fmt.Sprintf("Unknown field '%s'", strings.Join(parts, "__"))
		}
		field, ok := model.Fields[part]
		if !ok {
			return nil, fmt.Sprintf("Unknown field '%s'", strings.Join(parts, "__"))
		}
		bound = field.Bind(bound)
		modelName = field.RelName
	}
	if bound == nil || bound.Type() == nil {
		return nil, fmt.Sprintf("'%s' is not a value field", strings.Join(parts, "__"))
	}
	return bound, ""
}

// Bind resolves q against models.
func Bind(q *Query, models orm.Models) *BoundQuery {
	b := &BoundQuery{
		ModelName: q.ModelName,
		Fields:    []*BoundField{},
		Filters:   []*BoundFilter{},
		Limit:     q.Limit,
		model:     models[q.ModelName],
	}

	for _, qf := range q.Fields {
		bound, errMsg := resolve(models, q.ModelName, qf.Path)
		if errMsg != "" {
			continue
		}
		f := &BoundField{Orm: bound, Pivoted: qf.Pivoted && bound.CanPivot()}
		if bound.Concrete() {
			f.Direction = qf.Direction
			f.Priority = qf.Priority
		}
		b.Fields = append(b.Fields, f)
	}

	for _, qf := range q.Filters {
		f := &BoundFilter{Lookup: qf.Lookup, Value: qf.Value, path: qf.Path}
		bound, errMsg := resolve(models, q.ModelName, qf.Path)
		switch {
		case errMsg != "":
			f.ErrMessage = errMsg
		case !bound.Concrete():
			f.ErrMessage = fmt.Sprintf("Can't filter on '%s'", bound.PathStr)
		default:
			f.Orm = bound
			f.Parsed, f.ErrMessage = bound.Type().Parse(qf.Lookup, qf.Value)
		}
		b.Filters = append(b.Filters, f)
	}

	return b
}

// SortFields are the sorted fields in priority order.
func (b *BoundQuery) SortFields() []*BoundField {
	var result []*BoundField
	for _, f := range b.Fields {
		if f.Direction != "" && f.Priority != nil {
			result = append(result, f)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return *result[i].Priority < *result[j].Priority
	})
	return result
}

func (b *BoundQuery) ValidFilters() []*BoundFilter {
	var result []*BoundFilter
	for _, f := range b.Filters {
		if f.IsValid() {
			result = append(result, f)
		}
	}
	return result
}

func (b *BoundQuery) ColFields() []*BoundField {
	var result []*BoundField
	for _, f := range b.Fields {
		if f.Pivoted {
			result = append(result, f)
		}
	}
	return result
}

func (b *BoundQuery) RowFields() []*BoundField {
	if len(b.ColFields()) == 0 {
		return b.Fields
	}
	var result []*BoundField
	for _, f := range b.Fields {
		if f.Orm.CanPivot() && !f.Pivoted {
			result = append(result, f)
		}
	}
	return result
}

func (b *BoundQuery) DataFields() []*BoundField {
	if len(b.ColFields()) == 0 {
		return nil
	}
	var result []*BoundField
	for _, f := range b.Fields {
		if !f.Orm.CanPivot() {
			result = append(result, f)
		}
	}
	return result
}

func ormFields(fields []*BoundField) []*orm.BoundField {
	result := make([]*orm.BoundField, len(fields))
	for i, f := range fields {
		result[i] = f.Orm
	}
	return result
}

// Selection is what the executor runs for this query.
func (b *BoundQuery) Selection() *orm.Selection {
	sel := &orm.Selection{
		Model:      b.model,
		Fields:     ormFields(b.Fields),
		RowFields:  ormFields(b.RowFields()),
		ColFields:  ormFields(b.ColFields()),
		DataFields: ormFields(b.DataFields()),
		Limit:      b.Limit,
	}
	if b.model == nil {
		sel.Fields = nil
	}
	for _, f := range b.ValidFilters() {
		lookup := f.Lookup
		if lookup == "exact" {
			lookup = "equals"
		}
		sel.Filters = append(sel.Filters, orm.Filter{Field: f.Orm, Lookup: lookup, Value: f.Parsed})
	}
	for _, f := range b.SortFields() {
		sel.Sort = append(sel.Sort, orm.Sort{Field: f.Orm, Descending: f.Direction == DSC})
	}
	return sel
}
