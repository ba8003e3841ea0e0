package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		typ     *Type
		lookup  string
		value   string
		want    interface{}
		wantErr bool
	}{
		{name: "string equals", typ: String, lookup: Equals, value: "bob", want: "bob"},
		{name: "string exact alias", typ: String, lookup: "exact", value: "bob", want: "bob"},
		{name: "string bad lookup", typ: String, lookup: GT, value: "bob", wantErr: true},
		{name: "number lt", typ: Number, lookup: LT, value: "2", want: 2.0},
		{name: "number bad value", typ: Number, lookup: LT, value: "xx", wantErr: true},
		{name: "number bad lookup", typ: Number, lookup: "xx", value: "1", wantErr: true},
		{name: "number is_null", typ: Number, lookup: IsNull, value: "true", want: true},
		{name: "number is_null bad", typ: Number, lookup: IsNull, value: "maybe", wantErr: true},
		{name: "boolean", typ: Boolean, lookup: Equals, value: "False", want: false},
		{name: "time", typ: Time, lookup: GT, value: "2020-01-02 03:04:05", want: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "time bad", typ: Time, lookup: GT, value: "soon", wantErr: true},
		{name: "date truncates", typ: Date, lookup: Equals, value: "2020-01-02 03:04:05", want: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := tt.typ.Parse(tt.lookup, tt.value)
			if tt.wantErr {
				assert.NotEmpty(t, errMsg)
				assert.Nil(t, got)
				return
			}
			assert.Empty(t, errMsg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_NowAndToday(t *testing.T) {
	fixed := time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	got, errMsg := Time.Parse(GT, "now")
	require.Empty(t, errMsg)
	assert.Equal(t, fixed, got)

	got, errMsg = Date.Parse(GT, "today")
	require.Empty(t, errMsg)
	assert.Equal(t, time.Date(2021, 6, 7, 0, 0, 0, 0, time.UTC), got)
}

func TestNormalize(t *testing.T) {
	dt := time.Date(2020, 2, 1, 13, 14, 15, 0, time.UTC)

	tests := []struct {
		name  string
		typ   *Type
		value interface{}
		want  interface{}
	}{
		{name: "nil", typ: Number, value: nil, want: nil},
		{name: "bool from int", typ: Boolean, value: int64(0), want: false},
		{name: "bool from int true", typ: Boolean, value: int64(1), want: true},
		{name: "number from string", typ: Number, value: "1.5", want: 1.5},
		{name: "number from int string", typ: Number, value: "3", want: int64(3)},
		{name: "number passthrough", typ: Number, value: 2.0, want: 2.0},
		{name: "string from bytes", typ: String, value: []byte("g"), want: "g"},
		{name: "time", typ: Time, value: dt, want: "2020-02-01 13:14:15"},
		{name: "time from text", typ: Time, value: "2020-02-01 13:14:15+00:00", want: "2020-02-01 13:14:15"},
		{name: "date", typ: Date, value: dt, want: "2020-02-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Normalize(tt.value))
		})
	}
}

func TestByNameAndCatalogue(t *testing.T) {
	typ, ok := ByName("date")
	require.True(t, ok)
	assert.Same(t, Date, typ)

	_, ok = ByName("blob")
	assert.False(t, ok)

	catalogue := Catalogue()
	require.Len(t, catalogue, 5)

	number := catalogue["number"].(map[string]interface{})
	assert.Equal(t, Equals, number["defaultLookup"])
	assert.Equal(t, []string{Equals, NotEquals, GT, GTE, LT, LTE, IsNull}, number["sortedLookups"])
	isNull := number["lookups"].(map[string]interface{})[IsNull].(map[string]interface{})
	assert.Equal(t, "boolean", isNull["type"])
}
