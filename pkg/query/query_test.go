package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestParseFields(t *testing.T) {
	fields := ParseFields("size-0, name+1,&created_time__month,size_unit,,bob-x,size+3")

	require.Len(t, fields, 5)
	assert.Equal(t, Field{Path: []string{"size"}, Direction: DSC, Priority: intPtr(0)}, fields[0])
	assert.Equal(t, Field{Path: []string{"name"}, Direction: ASC, Priority: intPtr(1)}, fields[1])
	assert.Equal(t, Field{Path: []string{"created_time", "month"}, Pivoted: true}, fields[2])
	assert.Equal(t, Field{Path: []string{"size_unit"}}, fields[3])
	assert.Equal(t, Field{Path: []string{"bob"}}, fields[4], "a non-integer priority leaves the field unsorted")
}

func TestFromRequest(t *testing.T) {
	q := FromRequest("tests.Product", "size-0,name+1", "size__lt=2&id__gt=0&limit=5&other=1&name__contains=a%20b", 1000)

	assert.Equal(t, "tests.Product", q.ModelName)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, []Filter{
		{Path: []string{"size"}, Lookup: "lt", Value: "2"},
		{Path: []string{"id"}, Lookup: "gt", Value: "0"},
		{Path: []string{"name"}, Lookup: "contains", Value: "a b"},
	}, q.Filters)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     []Param
	}{
		{name: "empty", rawQuery: "", want: nil},
		{name: "semicolon in value", rawQuery: "name__equals=a;b", want: []Param{{Key: "name__equals", Value: "a;b"}}},
		{name: "escaped semicolon", rawQuery: "name__equals=a%3Bb&limit=2", want: []Param{{Key: "name__equals", Value: "a;b"}, {Key: "limit", Value: "2"}}},
		{name: "empty pairs", rawQuery: "&&name__equals=&", want: []Param{{Key: "name__equals", Value: ""}}},
		{name: "bad escape", rawQuery: "name__equals=100%", want: []Param{{Key: "name__equals", Value: "100%"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseParams(tt.rawQuery))
		})
	}

	q := FromRequest("tests.Product", "name+0", "name__equals=a;b", 1000)
	require.Len(t, q.Filters, 1)
	assert.Equal(t, Filter{Path: []string{"name"}, Lookup: "equals", Value: "a;b"}, q.Filters[0])
}

func TestFromRequest_Limit(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     int
	}{
		{name: "default", rawQuery: "", want: 1000},
		{name: "explicit", rawQuery: "limit=10", want: 10},
		{name: "clamped", rawQuery: "limit=-4", want: 1},
		{name: "zero", rawQuery: "limit=0", want: 1},
		{name: "garbage", rawQuery: "limit=lots", want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromRequest("m", "", tt.rawQuery, 1000).Limit)
		})
	}
}

func TestFromRequest_NestedFilterPath(t *testing.T) {
	q := FromRequest("tests.Product", "", "producer__address__city__equals=london", 0)

	require.Len(t, q.Filters, 1)
	assert.Equal(t, []string{"producer", "address", "city"}, q.Filters[0].Path)
	assert.Equal(t, "equals", q.Filters[0].Lookup)
	assert.Equal(t, DefaultLimit, q.Limit)
}

func TestSerialisation(t *testing.T) {
	q := FromRequest("tests.Product", "&created_time__year,size-0,name+1", "size__lt=2&name__equals=a+b", 100)

	assert.Equal(t, "&created_time__year,size-0,name+1", q.FieldString())
	assert.Equal(t, []Param{
		{Key: "size__lt", Value: "2"},
		{Key: "name__equals", Value: "a b"},
		{Key: "limit", Value: "100"},
	}, q.FilterParams())
	assert.Equal(t,
		"/data_browser/query/tests.Product/&created_time__year,size-0,name+1.json?size__lt=2&name__equals=a+b&limit=100",
		q.URL("/data_browser/", "json"))

	again := FromRequest(q.ModelName, q.FieldString(), EncodeParams(q.FilterParams()), 1)
	assert.Equal(t, q, again)
}
