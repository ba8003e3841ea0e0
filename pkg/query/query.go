// Package query parses and serialises the compact query encoding used in
// data browser URLs and binds queries against model metadata.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Sort directions.
const (
	ASC = "asc"
	DSC = "dsc"
)

// DefaultLimit is used when no limit is configured.
const DefaultLimit = 1000

// Field is one selected field.
type Field struct {
	Path    []string
	Pivoted bool
	// Direction is ASC, DSC or empty. Priority is set exactly when
	// Direction is.
	Direction string
	Priority  *int
}

// Filter is one path__lookup=value pair.
type Filter struct {
	Path   []string
	Lookup string
	Value  string
}

// Query is an unbound query.
type Query struct {
	ModelName string
	Fields    []Field
	Filters   []Filter
	Limit     int
}

// Param is an ordered query string pair.
type Param struct {
	Key   string
	Value string
}

func splitPath(path string) []string {
	return strings.Split(path, "__")
}

func parseSort(value, symbol, direction string) (string, string, *int) {
	idx := strings.Index(value, symbol)
	path, priority := value[:idx], value[idx+1:]
	p, err := strconv.Atoi(priority)
	if err != nil {
		return path, "", nil
	}
	return path, direction, &p
}

// ParseFields parses a comma separated field string.
func ParseFields(fieldStr string) []Field {
	var fields []Field
	found := map[string]bool{}

	for _, field := range strings.Split(fieldStr, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		pivoted := false
		if strings.HasPrefix(field, "&") {
			field = field[1:]
			pivoted = true
		}

		var (
			path      string
			direction string
			priority  *int
		)
		switch {
		case strings.Contains(field, "+"):
			path, direction, priority = parseSort(field, "+", ASC)
		case strings.Contains(field, "-"):
			path, direction, priority = parseSort(field, "-", DSC)
		default:
			path = field
		}

		if found[path] {
			continue
		}
		found[path] = true
		fields = append(fields, Field{
			Path:      splitPath(path),
			Pivoted:   pivoted,
			Direction: direction,
			Priority:  priority,
		})
	}
	return fields
}

// ParseParams splits a raw query string on '&' into ordered pairs. A ';' is
// part of the value. Malformed escapes are kept verbatim.
func ParseParams(rawQuery string) []Param {
	var params []Param
	for _, pair := range strings.Split(rawQuery, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if key == "" {
			continue
		}
		params = append(params, Param{Key: key, Value: value})
	}
	return params
}

// FromRequest builds a query from the URL parts of a request. rawQuery is
// the undecoded query string, whose order is kept for the filters.
func FromRequest(modelName, fieldStr, rawQuery string, defaultLimit int) *Query {
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	q := &Query{
		ModelName: modelName,
		Fields:    ParseFields(fieldStr),
		Filters:   []Filter{},
		Limit:     defaultLimit,
	}

	for _, p := range ParseParams(rawQuery) {
		if p.Key == "limit" {
			if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
				q.Limit = max(1, n)
			}
		}
		if idx := strings.LastIndex(p.Key, "__"); idx != -1 {
			q.Filters = append(q.Filters, Filter{
				Path:   splitPath(p.Key[:idx]),
				Lookup: p.Key[idx+2:],
				Value:  p.Value,
			})
		}
	}
	return q
}

// FieldString is the inverse of ParseFields.
func (q *Query) FieldString() string {
	parts := make([]string, 0, len(q.Fields))
	for _, f := range q.Fields {
		var sb strings.Builder
		if f.Pivoted {
			sb.WriteString("&")
		}
		sb.WriteString(strings.Join(f.Path, "__"))
		if f.Direction != "" && f.Priority != nil {
			if f.Direction == ASC {
				sb.WriteString("+")
			} else {
				sb.WriteString("-")
			}
			sb.WriteString(strconv.Itoa(*f.Priority))
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, ",")
}

// FilterParams lists the filters followed by the limit.
func (q *Query) FilterParams() []Param {
	params := make([]Param, 0, len(q.Filters)+1)
	for _, f := range q.Filters {
		params = append(params, Param{
			Key:   strings.Join(append(append([]string{}, f.Path...), f.Lookup), "__"),
			Value: f.Value,
		})
	}
	return append(params, Param{Key: "limit", Value: strconv.Itoa(q.Limit)})
}

// EncodeParams renders pairs as a query string, keeping their order.
func EncodeParams(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value)
	}
	return strings.Join(parts, "&")
}

// URL is the address of the query under base for the given media.
func (q *Query) URL(base, media string) string {
	return fmt.Sprintf("%s/query/%s/%s.%s?%s",
		strings.TrimRight(base, "/"), q.ModelName, q.FieldString(), media, EncodeParams(q.FilterParams()))
}
