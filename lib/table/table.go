// Package table turns raw report exports into canonical rectangular tables.
package table

import (
	"fmt"
	"strings"
)

// Format is the file format of a raw export.
type Format string

const (
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown input format %q", s)
	}
}

// Output is the file format of a canonical table written to disk.
type Output string

const (
	OutputCSV  Output = "csv"
	OutputXLSX Output = "xlsx"
)

func ParseOutput(s string) (Output, error) {
	switch o := Output(strings.ToLower(strings.TrimSpace(s))); o {
	case OutputCSV, OutputXLSX:
		return o, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// RawTable is the rows of an export as they were read, rows may have any length.
type RawTable [][]string

// CanonicalTable has unique canonical column names and exactly one value
// per column in every row.
type CanonicalTable struct {
	Columns []string
	Rows    [][]string
}

func (t CanonicalTable) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column or -1.
func (t CanonicalTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Select returns a table holding only the named columns, in the given
// order. Names are cleaned first so header text from the export works too.
func (t CanonicalTable) Select(names ...string) (CanonicalTable, error) {
	idx := make([]int, len(names))
	out := CanonicalTable{Columns: make([]string, len(names)), Rows: make([][]string, len(t.Rows))}
	for i, name := range names {
		column := CleanHeader(name)
		idx[i] = t.ColumnIndex(column)
		if idx[i] < 0 {
			return CanonicalTable{}, fmt.Errorf("no column %q", column)
		}
		out.Columns[i] = column
	}
	for r, row := range t.Rows {
		values := make([]string, len(idx))
		for i, j := range idx {
			values[i] = row[j]
		}
		out.Rows[r] = values
	}
	return out, nil
}
