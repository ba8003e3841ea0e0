// Package csvtable flattens query results, pivoted or not, into a single
// grid and writes it as CSV.
package csvtable

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/orm"
)

// Row is one grid row. Nil cells are blank.
type Row []interface{}

// Table is a grid of rows.
type Table []Row

// Column is anything that can head a grid column.
type Column interface {
	PrettyPath() []string
	PathStr() string
}

// Layout names the fields that make up each area of a pivot table.
type Layout struct {
	RowFields  []Column
	ColFields  []Column
	DataFields []Column
}

// Pad returns n blank cells, or none when n is negative.
func Pad(n int) Row {
	return make(Row, max(0, n))
}

// Concat joins rows end to end.
func Concat(rows ...Row) Row {
	var result Row
	for _, r := range rows {
		result = append(result, r...)
	}
	if result == nil {
		result = Row{}
	}
	return result
}

// FlipTable transposes t, truncating to the shortest row.
func FlipTable(t Table) Table {
	if len(t) == 0 {
		return Table{}
	}
	width := len(t[0])
	for _, r := range t[1:] {
		width = min(width, len(r))
	}

	result := make(Table, width)
	for i := range result {
		row := make(Row, len(t))
		for j, r := range t {
			row[j] = r[i]
		}
		result[i] = row
	}
	return result
}

// JoinTables places tables side by side, truncating to the shortest table.
func JoinTables(tables ...Table) Table {
	if len(tables) == 0 {
		return Table{}
	}
	height := len(tables[0])
	for _, t := range tables[1:] {
		height = min(height, len(t))
	}

	result := make(Table, height)
	for i := range result {
		parts := make([]Row, len(tables))
		for j, t := range tables {
			parts[j] = t[i]
		}
		result[i] = Concat(parts...)
	}
	return result
}

// FormatTable renders records through fields: a header row of pretty
// paths, then each record followed by spacing blank rows.
func FormatTable(fields []Column, records []orm.Record, spacing int) Table {
	header := make(Row, len(fields))
	for i, f := range fields {
		header[i] = strings.Join(f.PrettyPath(), " ")
	}

	table := Table{header}
	for _, record := range records {
		row := make(Row, len(fields))
		for i, f := range fields {
			row[i] = record[f.PathStr()]
		}
		table = append(table, row)
		for s := 0; s < spacing; s++ {
			table = append(table, Pad(len(fields)))
		}
	}
	return table
}

// PadTable left-pads every row with n blank cells.
func PadTable(n int, t Table) Table {
	result := make(Table, len(t))
	for i, r := range t {
		result[i] = Concat(Pad(n), r)
	}
	return result
}

// Build assembles the whole grid: the flipped column headers above the row
// headers and the data sub-tables.
func Build(layout Layout, res *orm.Results) Table {
	headers := PadTable(
		len(layout.RowFields)-1,
		FlipTable(FormatTable(layout.ColFields, res.Cols, len(layout.DataFields)-1)),
	)

	tables := []Table{FormatTable(layout.RowFields, res.Rows, 0)}
	for _, sub := range res.Body {
		tables = append(tables, FormatTable(layout.DataFields, sub, 0))
	}
	data := PadTable(1-len(layout.RowFields), JoinTables(tables...))

	return append(headers, data...)
}

// emptyCell is a row holding one blank cell. encoding/csv writes that as a
// blank line, which readers drop.
const emptyCell = "\"\"\n"

// Write renders the grid as CSV.
func Write(w io.Writer, layout Layout, res *orm.Results) error {
	writer := csv.NewWriter(w)
	for _, row := range Build(layout, res) {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = FormatCell(cell)
		}
		if len(record) == 1 && record[0] == "" {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
			if _, err := io.WriteString(w, emptyCell); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
			continue
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatCell renders one value. Floats always carry a fractional part.
func FormatCell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return formatFloat(value, 64)
	case float32:
		return formatFloat(float64(value), 32)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		return value.Format(common.DateTimeLayout)
	case []byte:
		return string(value)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
