package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"icreports/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// maxColspan caps how many times a spanning cell is repeated.
const maxColspan = 1000

var utf8BOM = []byte("\xef\xbb\xbf")

// ReadCSV reads a comma delimited export, rows may differ in length.
func ReadCSV(r io.Reader) (RawTable, error) {
	br := bufio.NewReader(r)
	prefix, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, formatErrorf(KindParse, parseErr.StartLine-1, "%s", parseErr.Err.Error())
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return RawTable(records), nil
}

func colspan(cell *goquery.Selection) int {
	value, ok := cell.Attr("colspan")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 1
	}
	if n > maxColspan {
		return maxColspan
	}
	return n
}

// ReadHTML reads the rows of the first table in an HTML export. Rows of
// nested tables are ignored, a cell spanning several columns is repeated
// in each of them and rows without cells are skipped.
func ReadHTML(r io.Reader) (RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return nil, formatErrorf(KindNoTable, -1, "document has no table")
	}

	var out RawTable
	tbl.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if !row.Closest("table").IsSelection(tbl) {
			return
		}

		var cells []string
		row.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := htmlutil.SelectionText(cell)
			for i := 0; i < colspan(cell); i++ {
				cells = append(cells, text)
			}
		})
		if len(cells) == 0 {
			return
		}
		out = append(out, cells)
	})
	return out, nil
}

// ReadFile reads the export at path in the given format.
func ReadFile(path string, format Format) (RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatHTML:
		return ReadHTML(f)
	case FormatCSV:
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}
