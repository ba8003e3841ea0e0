package query

import (
	"encoding/json"
	"testing"

	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/bitechdev/DataBrowser/pkg/orm"
	"github.com/bitechdev/DataBrowser/pkg/testmodels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testModels(t *testing.T) orm.Models {
	registry := modelregistry.NewModelRegistry()
	testmodels.RegisterTestModels(registry)
	catalog, err := orm.NewCatalog(registry)
	require.NoError(t, err)
	return catalog.All()
}

func pathStrs(fields []*BoundField) []string {
	result := make([]string, len(fields))
	for i, f := range fields {
		result[i] = f.PathStr()
	}
	return result
}

func TestBind_DropsBadFields(t *testing.T) {
	q := FromRequest("tests.Product", "size-0,name+1,size_unit,bob-2,is_onsale,pooducer__name,producer__name,producer", "", 1000)
	b := Bind(q, testModels(t))

	assert.Equal(t, []string{"size", "name", "size_unit", "is_onsale", "producer__name"}, pathStrs(b.Fields))
	assert.Equal(t, []string{"size", "name"}, pathStrs(b.SortFields()))
}

func TestBind_FilterErrors(t *testing.T) {
	q := FromRequest("tests.Product", "", "size__lt=2&bob__gt=1&size__xx=1&size__lt=xx&id__count__gt=1&producer__equals=1", 1000)
	b := Bind(q, testModels(t))

	require.Len(t, b.Filters, 6)
	assert.True(t, b.Filters[0].IsValid())
	assert.Equal(t, 2.0, b.Filters[0].Parsed)
	for _, f := range b.Filters[1:] {
		assert.False(t, f.IsValid(), f.PathStr())
		assert.NotEmpty(t, f.ErrMessage, f.PathStr())
	}
	assert.Equal(t, "bob", b.Filters[1].PathStr())
	assert.Len(t, b.ValidFilters(), 1)
}

func TestBind_SortPriorityAndAggregates(t *testing.T) {
	q := FromRequest("tests.Product", "name+2,size-1,id__count+0", "", 1000)
	b := Bind(q, testModels(t))

	assert.Equal(t, []string{"size", "name"}, pathStrs(b.SortFields()))
	assert.Equal(t, "", b.Fields[2].Direction, "aggregates are not sortable")
	assert.Nil(t, b.Fields[2].Priority)
}

func TestBind_PivotSets(t *testing.T) {
	models := testModels(t)

	unpivoted := Bind(FromRequest("tests.Product", "name,id__count", "", 1000), models)
	assert.Empty(t, unpivoted.ColFields())
	assert.Equal(t, []string{"name", "id__count"}, pathStrs(unpivoted.RowFields()))
	assert.Empty(t, unpivoted.DataFields())

	pivoted := Bind(FromRequest("tests.Product", "created_time__year,&created_time__month,id__count,&id__max", "", 1000), models)
	assert.Equal(t, []string{"created_time__month"}, pathStrs(pivoted.ColFields()), "aggregates cannot pivot")
	assert.Equal(t, []string{"created_time__year"}, pathStrs(pivoted.RowFields()))
	assert.Equal(t, []string{"id__count", "id__max"}, pathStrs(pivoted.DataFields()))

	sel := pivoted.Selection()
	assert.Len(t, sel.Fields, 4)
	assert.Len(t, sel.ColFields, 1)
	assert.Equal(t, "tests_product", sel.Model.Table())
}

func TestBind_UnknownModel(t *testing.T) {
	b := Bind(FromRequest("tests.Bob", "name", "name__equals=a", 1000), testModels(t))
	assert.Empty(t, b.Fields)
	require.Len(t, b.Filters, 1)
	assert.False(t, b.Filters[0].IsValid())
	assert.Empty(t, b.Selection().Fields)
}

func TestData(t *testing.T) {
	q := FromRequest("tests.Product", "size-0,&name,producer__address__city", "size__lt=2&bob__gt=1", 1000)
	data := Bind(q, testModels(t)).Data("1.0.0")

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	doc := string(raw)

	assert.Equal(t, "tests.Product", gjson.Get(doc, "model").String())
	assert.Equal(t, "1.0.0", gjson.Get(doc, "version").String())
	assert.Equal(t, int64(2), gjson.Get(doc, "filters.#").Int())
	assert.Equal(t, "size__lt", gjson.Get(doc, "filters.0.pathStr").String()+"__"+gjson.Get(doc, "filters.0.lookup").String())
	assert.Equal(t, gjson.Null, gjson.Get(doc, "filterErrors.0").Type)
	assert.Equal(t, "Unknown field 'bob'", gjson.Get(doc, "filterErrors.1").String())

	assert.Equal(t, "dsc", gjson.Get(doc, "fields.0.sort").String())
	assert.Equal(t, int64(0), gjson.Get(doc, "fields.0.priority").Int())
	assert.True(t, gjson.Get(doc, "fields.1.pivoted").Bool())
	assert.Equal(t, gjson.Null, gjson.Get(doc, "fields.1.sort").Type)
	assert.Equal(t, `["producer","address","city"]`, gjson.Get(doc, "fields.2.path").Raw)
	assert.Equal(t, "producer__address__city", gjson.Get(doc, "fields.2.pathStr").String())
}
