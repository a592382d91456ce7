package table

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const studentExtract = `<html><body>
<table>
  <tr><td colspan="3">Student Data <b>Report</b></td></tr>
  <tr><th>Student Number</th><th>Name</th><th>Student&nbsp;Count</th></tr>
  <tr><td>1001</td><td>Lovelace,<br>Ada</td><td>1</td></tr>
  <tr><td>1002</td><td>
    <table><tr><td>nested</td></tr></table> Hopper
  </td><td>1</td></tr>
  <tr></tr>
  <tr><td>All Records</td><td></td><td>2</td></tr>
</table>
<table><tr><td>second table</td></tr></table>
</body></html>`

func TestReadHTML(t *testing.T) {
	raw, err := ReadHTML(strings.NewReader(studentExtract))
	require.NoError(t, err)

	expected := RawTable{
		{"Student Data Report", "Student Data Report", "Student Data Report"},
		{"Student Number", "Name", "Student Count"},
		{"1001", "Lovelace, Ada", "1"},
		{"1002", "nested Hopper", "1"},
		{"All Records", "", "2"},
	}
	if diff := cmp.Diff(expected, raw); diff != "" {
		t.Fatal(diff)
	}

	out, err := Normalize(context.Background(), raw, Options{
		HeaderRow:   1,
		DropColumns: []string{"Student Count"},
		Aggregate:   Aggregate{Sentinel: "All Records"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"student_number", "name"}, out.Columns)
	require.Equal(t, [][]string{{"1001", "Lovelace, Ada"}, {"1002", "nested Hopper"}}, out.Rows)
}

func TestReadHTMLNoTable(t *testing.T) {
	_, err := ReadHTML(strings.NewReader("<html><body><p>Your session has expired</p></body></html>"))
	require.ErrorIs(t, err, ErrFormat)
}

func TestReadCSV(t *testing.T) {
	input := "\xef\xbb\xbfSchool,ADA,\"Student Count\"\nReport Date: 08/19/2024\n\n\"North, Campus\",95.1,410\nSouth,9\"3,401\n"
	raw, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	expected := RawTable{
		{"School", "ADA", "Student Count"},
		{"Report Date: 08/19/2024"},
		{"North, Campus", "95.1", "410"},
		{"South", "9\"3", "401"},
	}
	if diff := cmp.Diff(expected, raw); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extract.html")
	require.NoError(t, os.WriteFile(path, []byte(studentExtract), 0644))

	raw, err := ReadFile(path, FormatHTML)
	require.NoError(t, err)
	require.Len(t, raw, 5)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"), FormatCSV)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.False(t, errors.Is(err, ErrFormat))
}

func TestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	err := WriteCSV(buf, CanonicalTable{
		Columns: []string{"name", "grade"},
		Rows:    [][]string{{"Lovelace, Ada", "5"}, {"B", "6"}},
	})
	require.NoError(t, err)
	require.Equal(t, "name,grade\n\"Lovelace, Ada\",5\nB,6\n", buf.String())
}

func TestWriteFileCSVRoundTrip(t *testing.T) {
	table := CanonicalTable{
		Columns: []string{"student_number", "name"},
		Rows:    [][]string{{"1001", "Ada"}, {"1002", "Grace"}},
	}
	path := filepath.Join(t.TempDir(), "out", "student_data.csv")
	require.NoError(t, WriteFile(context.Background(), path, table, OutputCSV))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	raw, err := ReadCSV(f)
	require.NoError(t, err)

	back, err := Normalize(context.Background(), raw, Options{})
	require.NoError(t, err)
	if diff := cmp.Diff(table, back); diff != "" {
		t.Fatal(diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteFileXLSX(t *testing.T) {
	table := CanonicalTable{
		Columns: []string{"school", "ada"},
		Rows:    [][]string{{"North", "95.1"}, {"South", "0093"}},
	}
	path := filepath.Join(t.TempDir(), "ada_adm_detail_report_for_all_schools.xlsx")
	require.NoError(t, WriteFile(context.Background(), path, table, OutputXLSX))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.Equal(t, "ada_adm_detail_report_for_all_s", sheet)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"school", "ada"}, {"North", "95.1"}, {"South", "0093"}}, rows)
}

func TestWriteFileUnknownOutput(t *testing.T) {
	dir := t.TempDir()
	err := WriteFile(context.Background(), filepath.Join(dir, "x.json"), CanonicalTable{}, Output("json"))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSheetName(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "", expected: "Sheet1"},
		{in: "ell_export", expected: "ell_export"},
		{in: "a/b:c", expected: "a_b_c"},
		{in: strings.Repeat("x", 40), expected: strings.Repeat("x", 31)},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, SheetName(test.in))
	}
}

func TestParseFormats(t *testing.T) {
	f, err := ParseFormat(" HTML ")
	require.NoError(t, err)
	require.Equal(t, FormatHTML, f)
	_, err = ParseFormat("pdf")
	require.Error(t, err)

	o, err := ParseOutput("xlsx")
	require.NoError(t, err)
	require.Equal(t, OutputXLSX, o)
	_, err = ParseOutput("parquet")
	require.Error(t, err)
}
