// Package types describes the value types a browsable field can have, the
// filter lookups each type supports, and how raw filter values and database
// results are converted for that type.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common"
)

// Lookup names.
const (
	Equals      = "equals"
	NotEquals   = "not_equals"
	Contains    = "contains"
	NotContains = "not_contains"
	StartsWith  = "starts_with"
	EndsWith    = "ends_with"
	GT          = "gt"
	GTE         = "gte"
	LT          = "lt"
	LTE         = "lte"
	IsNull      = "is_null"
)

// Lookup is one filter operator and the type its value is parsed as.
type Lookup struct {
	Name      string
	ValueType string
}

// Type is a field value type.
type Type struct {
	Name          string
	Lookups       []Lookup
	DefaultLookup string
	DefaultValue  interface{}

	parse     func(value string) (interface{}, error)
	normalize func(value interface{}) interface{}
}

func lookups(typeName string, names ...string) []Lookup {
	result := make([]Lookup, 0, len(names)+1)
	for _, name := range names {
		result = append(result, Lookup{Name: name, ValueType: typeName})
	}
	return append(result, Lookup{Name: IsNull, ValueType: "boolean"})
}

var (
	String = &Type{
		Name:          "string",
		Lookups:       lookups("string", Equals, NotEquals, Contains, NotContains, StartsWith, EndsWith),
		DefaultLookup: Equals,
		DefaultValue:  "",
		parse:         func(value string) (interface{}, error) { return value, nil },
		normalize:     normalizeString,
	}

	Number = &Type{
		Name:          "number",
		Lookups:       lookups("number", Equals, NotEquals, GT, GTE, LT, LTE),
		DefaultLookup: Equals,
		DefaultValue:  0,
		parse:         parseNumber,
		normalize:     normalizeNumber,
	}

	Boolean = &Type{
		Name:          "boolean",
		Lookups:       lookups("boolean", Equals, NotEquals),
		DefaultLookup: Equals,
		DefaultValue:  true,
		parse:         parseBoolean,
		normalize:     normalizeBoolean,
	}

	Time = &Type{
		Name:          "time",
		Lookups:       lookups("time", Equals, NotEquals, GT, GTE, LT, LTE),
		DefaultLookup: GT,
		DefaultValue:  "now",
		parse:         parseTime,
		normalize:     func(value interface{}) interface{} { return normalizeTime(value, common.DateTimeLayout) },
	}

	Date = &Type{
		Name:          "date",
		Lookups:       lookups("date", Equals, NotEquals, GT, GTE, LT, LTE),
		DefaultLookup: GT,
		DefaultValue:  "today",
		parse:         parseDate,
		normalize:     func(value interface{}) interface{} { return normalizeTime(value, common.DateLayout) },
	}
)

var all = []*Type{String, Number, Boolean, Time, Date}

// All returns every type in catalogue order.
func All() []*Type {
	return all
}

// ByName looks a type up by name.
func ByName(name string) (*Type, bool) {
	for _, t := range all {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Lookup returns the named lookup. "exact" is accepted for equals.
func (t *Type) Lookup(name string) (Lookup, bool) {
	if name == "exact" {
		name = Equals
	}
	for _, l := range t.Lookups {
		if l.Name == name {
			return l, true
		}
	}
	return Lookup{}, false
}

// LookupNames returns the lookup names in display order.
func (t *Type) LookupNames() []string {
	names := make([]string, len(t.Lookups))
	for i, l := range t.Lookups {
		names[i] = l.Name
	}
	return names
}

// Parse converts a raw filter value for the given lookup. It never fails
// outright: a non-empty message means the filter is invalid.
func (t *Type) Parse(lookup, value string) (interface{}, string) {
	l, ok := t.Lookup(lookup)
	if !ok {
		return nil, fmt.Sprintf("Bad lookup '%s' expected %s", lookup, strings.Join(t.LookupNames(), ", "))
	}

	parse := t.parse
	if l.ValueType != t.Name {
		vt, _ := ByName(l.ValueType)
		parse = vt.parse
	}

	parsed, err := parse(value)
	if err != nil {
		return nil, err.Error()
	}
	return parsed, ""
}

// Normalize converts a value scanned from the database into its output form.
func (t *Type) Normalize(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	return t.normalize(value)
}

// Config is the client-side description of the type.
func (t *Type) Config() map[string]interface{} {
	lookups := make(map[string]interface{}, len(t.Lookups))
	for _, l := range t.Lookups {
		lookups[l.Name] = map[string]interface{}{"type": l.ValueType}
	}
	return map[string]interface{}{
		"lookups":       lookups,
		"sortedLookups": t.LookupNames(),
		"defaultLookup": t.DefaultLookup,
		"defaultValue":  t.DefaultValue,
	}
}

// Catalogue returns the config of every type keyed by name.
func Catalogue() map[string]interface{} {
	result := make(map[string]interface{}, len(all))
	for _, t := range all {
		result[t.Name] = t.Config()
	}
	return result
}

func parseNumber(value string) (interface{}, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, fmt.Errorf("Expected a number, got '%s'", value)
	}
	return f, nil
}

func parseBoolean(value string) (interface{}, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return nil, fmt.Errorf("Expected true or false, got '%s'", value)
}

var now = time.Now

func parseTime(value string) (interface{}, error) {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "now") {
		return now().UTC(), nil
	}
	t, err := common.TryParseDT(value)
	if err != nil {
		return nil, fmt.Errorf("Expected a date/time, got '%s'", value)
	}
	return t.UTC(), nil
}

func parseDate(value string) (interface{}, error) {
	value = strings.TrimSpace(value)
	var t time.Time
	if strings.EqualFold(value, "today") {
		t = now()
	} else {
		parsed, err := common.TryParseDT(value)
		if err != nil {
			return nil, fmt.Errorf("Expected a date, got '%s'", value)
		}
		t = parsed
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func normalizeString(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return fmt.Sprint(value)
}

func normalizeNumber(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return normalizeNumber(string(v))
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return nil
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	}
	return value
}

func normalizeBoolean(value interface{}) interface{} {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case []byte:
		return normalizeBoolean(string(v))
	case string:
		b, err := parseBoolean(v)
		if err != nil {
			return nil
		}
		return b
	}
	return value
}

func normalizeTime(value interface{}, layout string) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.Format(layout)
	case []byte:
		return normalizeTime(string(v), layout)
	case string:
		t, err := common.TryParseDT(v)
		if err != nil {
			return v
		}
		return t.Format(layout)
	}
	return value
}
