// Package orm turns the registered Go models into browsable model metadata
// and runs bound queries against a common.Database.
package orm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/bitechdev/DataBrowser/pkg/logger"
	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/bitechdev/DataBrowser/pkg/types"
	"gorm.io/gorm/schema"
)

type fieldKind int

const (
	kindColumn fieldKind = iota
	kindRelation
	kindFunction
	kindAggregate
)

// Field is one selectable member of a model.
type Field struct {
	Name       string
	PrettyName string
	// Type is nil for relations, which are only reachable through their
	// sub-fields.
	Type     *types.Type
	Concrete bool
	CanPivot bool
	// RelName is the model the field's sub-fields live on.
	RelName string

	kind   fieldKind
	table  string
	column string
	fn     string

	// belongs-to join
	foreignKey string
	relTable   string
	relKey     string
}

// IsAggregate reports whether the field collapses rows.
func (f *Field) IsAggregate() bool {
	return f.kind == kindAggregate
}

// Model is a browsable model: a registered struct or a per-type pseudo model.
type Model struct {
	Name   string
	Root   bool
	Fields map[string]*Field

	app   string
	model string
	table string
}

// Table is the database table of a root model.
func (m *Model) Table() string {
	return m.table
}

// Permission is the one a non-superuser needs to browse the model.
func (m *Model) Permission() string {
	return fmt.Sprintf("%s.view_%s", m.app, strings.ToLower(m.model))
}

// SortedFieldNames lists field names alphabetically with "id" first.
func (m *Model) SortedFieldNames() []string {
	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "id" || names[j] == "id" {
			return names[i] == "id" && names[j] != "id"
		}
		return names[i] < names[j]
	})
	return names
}

// Models maps model names to metadata.
type Models map[string]*Model

// SortedRootNames lists the root models alphabetically.
func (m Models) SortedRootNames() []string {
	names := make([]string, 0, len(m))
	for name, model := range m {
		if model.Root {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Viewer is whoever the models are being listed for.
type Viewer interface {
	IsSuperuser() bool
	HasPerm(perm string) bool
}

// Catalog is the metadata of every registered model plus the type models.
type Catalog struct {
	models Models
}

// NewCatalog parses every model in the registry with GORM's schema parser.
func NewCatalog(registry *modelregistry.DefaultModelRegistry) (*Catalog, error) {
	cache := &sync.Map{}
	namer := schema.NamingStrategy{}

	names := registry.Names()
	schemas := make(map[string]*schema.Schema, len(names))
	byType := make(map[reflect.Type]string, len(names))

	for _, name := range names {
		model, err := registry.GetModel(name)
		if err != nil {
			return nil, err
		}
		s, err := schema.Parse(reflect.New(reflect.TypeOf(model)).Interface(), cache, namer)
		if err != nil {
			return nil, fmt.Errorf("parse model %s: %w", name, err)
		}
		schemas[name] = s
		byType[s.ModelType] = name
	}

	models := typeModels()
	for _, name := range names {
		models[name] = buildModel(name, schemas[name], byType, namer)
	}

	logger.Debug("Loaded %d browsable models", len(names))
	return &Catalog{models: models}, nil
}

// All returns every model, ignoring permissions.
func (c *Catalog) All() Models {
	return c.models
}

// ModelsFor returns the models the viewer may browse. Relations pointing at
// hidden models are removed.
func (c *Catalog) ModelsFor(viewer Viewer) Models {
	if viewer != nil && viewer.IsSuperuser() {
		return c.models
	}

	visible := make(Models, len(c.models))
	for name, model := range c.models {
		if !model.Root || (viewer != nil && viewer.HasPerm(model.Permission())) {
			visible[name] = model
		}
	}

	result := make(Models, len(visible))
	for name, model := range visible {
		fields := make(map[string]*Field, len(model.Fields))
		for fname, field := range model.Fields {
			if field.kind == kindRelation {
				if _, ok := visible[field.RelName]; !ok {
					continue
				}
			}
			fields[fname] = field
		}
		copied := *model
		copied.Fields = fields
		result[name] = &copied
	}
	return result
}

func typeFor(dataType schema.DataType) *types.Type {
	switch dataType {
	case schema.Bool:
		return types.Boolean
	case schema.Int, schema.Uint, schema.Float:
		return types.Number
	case schema.String:
		return types.String
	case schema.Time:
		return types.Time
	}
	if strings.EqualFold(string(dataType), "date") {
		return types.Date
	}
	return nil
}

func typeModelName(t *types.Type) string {
	return "_" + t.Name
}

func buildModel(name string, s *schema.Schema, byType map[reflect.Type]string, namer schema.Namer) *Model {
	app, modelName := modelregistry.SplitName(name)
	m := &Model{
		Name:   name,
		Root:   true,
		Fields: make(map[string]*Field),
		app:    app,
		model:  modelName,
		table:  s.Table,
	}

	foreignKeys := map[string]bool{}
	for _, rel := range s.Relationships.BelongsTo {
		relName, ok := byType[rel.FieldSchema.ModelType]
		if !ok || len(rel.References) != 1 {
			continue
		}
		ref := rel.References[0]
		fieldName := namer.ColumnName("", rel.Name)
		m.Fields[fieldName] = &Field{
			Name:       fieldName,
			PrettyName: fieldName,
			RelName:    relName,
			kind:       kindRelation,
			table:      s.Table,
			foreignKey: ref.ForeignKey.DBName,
			relTable:   rel.FieldSchema.Table,
			relKey:     ref.PrimaryKey.DBName,
		}
		foreignKeys[ref.ForeignKey.DBName] = true
	}

	for _, f := range s.Fields {
		if f.DBName == "" || foreignKeys[f.DBName] {
			continue
		}
		t := typeFor(f.DataType)
		if t == nil {
			continue
		}
		m.Fields[f.DBName] = &Field{
			Name:       f.DBName,
			PrettyName: f.DBName,
			Type:       t,
			Concrete:   true,
			CanPivot:   true,
			RelName:    typeModelName(t),
			kind:       kindColumn,
			table:      s.Table,
			column:     f.DBName,
		}
	}

	return m
}

var timeFunctions = []string{"year", "quarter", "month", "day", "week_day", "hour", "minute", "second", "date"}
var dateFunctions = []string{"year", "quarter", "month", "day", "week_day"}

func typeModels() Models {
	models := Models{}
	for _, t := range types.All() {
		fields := map[string]*Field{}
		addAggregate := func(name string, result *types.Type) {
			fields[name] = &Field{Name: name, PrettyName: name, Type: result, kind: kindAggregate, fn: name}
		}

		addAggregate("count", types.Number)
		switch t {
		case types.Number:
			addAggregate("sum", types.Number)
			addAggregate("average", types.Number)
			addAggregate("min", types.Number)
			addAggregate("max", types.Number)
		case types.Time, types.Date:
			addAggregate("min", t)
			addAggregate("max", t)
		}

		var funcs []string
		switch t {
		case types.Time:
			funcs = timeFunctions
		case types.Date:
			funcs = dateFunctions
		}
		for _, fn := range funcs {
			result := types.Number
			if fn == "date" {
				result = types.Date
			}
			fields[fn] = &Field{
				Name:       fn,
				PrettyName: fn,
				Type:       result,
				Concrete:   true,
				CanPivot:   true,
				RelName:    typeModelName(result),
				kind:       kindFunction,
				fn:         fn,
			}
		}

		models[typeModelName(t)] = &Model{Name: typeModelName(t), Fields: fields}
	}
	return models
}

// Config is the client-side description of the field.
func (f *Field) Config() map[string]interface{} {
	var typeName, relName interface{}
	if f.Type != nil {
		typeName = f.Type.Name
	}
	if f.RelName != "" {
		relName = f.RelName
	}
	return map[string]interface{}{
		"model":      relName,
		"type":       typeName,
		"concrete":   f.Concrete,
		"canPivot":   f.CanPivot,
		"prettyName": f.PrettyName,
	}
}

// Config is the client-side description of the model's fields.
func (m *Model) Config() map[string]interface{} {
	fields := make(map[string]interface{}, len(m.Fields))
	for name, f := range m.Fields {
		fields[name] = f.Config()
	}
	return map[string]interface{}{
		"fields":       fields,
		"sortedFields": m.SortedFieldNames(),
	}
}

// Config describes every model keyed by name.
func (m Models) Config() map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for name, model := range m {
		result[name] = model.Config()
	}
	return result
}
