package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/logger"
)

// Record is one result row keyed by field path.
type Record map[string]interface{}

// Results holds the flat records and, for pivoted queries, the row headers,
// column headers and one body sub-table per column.
type Results struct {
	Results []Record   `json:"results"`
	Cols    []Record   `json:"cols"`
	Rows    []Record   `json:"rows"`
	Body    [][]Record `json:"body"`
}

func emptyResults() *Results {
	return &Results{
		Results: []Record{},
		Cols:    []Record{},
		Rows:    []Record{},
		Body:    [][]Record{},
	}
}

// GetResults runs the selection. Pivoted selections issue separate queries
// for the row and column headers.
func GetResults(ctx context.Context, db common.Database, sel *Selection) (*Results, error) {
	res := emptyResults()
	if len(sel.Fields) == 0 {
		return res, nil
	}

	dialect := db.Dialect()
	pivoted := len(sel.ColFields) > 0

	main := &selectBuilder{
		dialect: dialect,
		table:   sel.Model.table,
		fields:  sel.Fields,
		filters: sel.Filters,
		sort:    sel.Sort,
		limit:   sel.Limit,
	}
	if pivoted {
		// every (row, col) cell of the fetched headers must be found
		main.limit = 0
	}
	records, err := fetch(ctx, db, main)
	if err != nil {
		return nil, err
	}

	if !pivoted {
		res.Results = records
		res.Rows = records
		return res, nil
	}

	res.Results = records
	if sel.Limit > 0 && len(records) > sel.Limit {
		res.Results = records[:sel.Limit]
	}

	if len(sel.RowFields) > 0 {
		res.Rows, err = fetch(ctx, db, &selectBuilder{
			dialect:  dialect,
			table:    sel.Model.table,
			fields:   sel.RowFields,
			filters:  sel.Filters,
			sort:     sortFor(sel.Sort, sel.RowFields),
			limit:    sel.Limit,
			distinct: true,
		})
		if err != nil {
			return nil, err
		}
	} else {
		res.Rows = []Record{{}}
	}

	res.Cols, err = fetch(ctx, db, &selectBuilder{
		dialect:  dialect,
		table:    sel.Model.table,
		fields:   sel.ColFields,
		filters:  sel.Filters,
		sort:     sortFor(sel.Sort, sel.ColFields),
		limit:    sel.Limit,
		distinct: true,
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]Record, len(records))
	for _, cell := range records {
		index[key(cell, sel.RowFields)+"\x1f"+key(cell, sel.ColFields)] = cell
	}

	res.Body = make([][]Record, len(res.Cols))
	for i, col := range res.Cols {
		colKey := key(col, sel.ColFields)
		table := make([]Record, len(res.Rows))
		for j, row := range res.Rows {
			data := Record{}
			if cell, ok := index[key(row, sel.RowFields)+"\x1f"+colKey]; ok {
				for _, f := range sel.DataFields {
					data[f.PathStr] = cell[f.PathStr]
				}
			}
			table[j] = data
		}
		res.Body[i] = table
	}

	return res, nil
}

func fetch(ctx context.Context, db common.Database, b *selectBuilder) ([]Record, error) {
	query, args := b.build()
	logger.Debug("data browser query: %s %v", query, args)

	var rows []map[string]interface{}
	if err := db.Query(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", b.table, err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		record := make(Record, len(b.fields))
		for _, f := range b.fields {
			record[f.PathStr] = f.Type().Normalize(row[f.PathStr])
		}
		records[i] = record
	}
	return records, nil
}

func sortFor(sorts []Sort, fields []*BoundField) []Sort {
	wanted := make(map[*BoundField]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}
	var result []Sort
	for _, s := range sorts {
		if wanted[s.Field] {
			result = append(result, s)
		}
	}
	return result
}

func key(record Record, fields []*BoundField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%v", record[f.PathStr])
	}
	return strings.Join(parts, "\x1e")
}
