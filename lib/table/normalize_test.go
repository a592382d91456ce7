package table

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndToEnd(t *testing.T) {
	raw := RawTable{
		{"Name", "Grade", "Student Count"},
		{"A", "5", "20"},
		{"B", "6", "15"},
		{"All Records", "", "35"},
	}
	out, err := Normalize(context.Background(), raw, Options{
		DropColumns: []string{"student_count"},
		Aggregate:   Aggregate{Sentinel: "All Records"},
	})
	require.NoError(t, err)

	expected := CanonicalTable{
		Columns: []string{"name", "grade"},
		Rows:    [][]string{{"A", "5"}, {"B", "6"}},
	}
	if diff := cmp.Diff(expected, out); diff != "" {
		t.Fatal(diff)
	}
}

func TestNormalizeHeaderOffset(t *testing.T) {
	raw := RawTable{
		{"Student Data Report"},
		{"Student Number", "Last Name", "First Name", "Student Count"},
		{"1001", "Lovelace", "Ada", "1"},
		{"All Records", "", "", "3"},
		{"1002", "Hopper", "Grace", "1"},
		{"1003", "Turing", "Alan", "1"},
	}
	out, err := Normalize(context.Background(), raw, Options{
		HeaderRow:   1,
		DropColumns: []string{"Student Count"},
		Aggregate:   Aggregate{Sentinel: "All Records"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"student_number", "last_name", "first_name"}, out.Columns)
	require.Equal(t, 3, out.Len())
	require.Equal(t, -1, out.ColumnIndex("student_count"))

	names, err := out.Select("First Name", "student_number")
	require.NoError(t, err)
	expected := CanonicalTable{
		Columns: []string{"first_name", "student_number"},
		Rows:    [][]string{{"Ada", "1001"}, {"Grace", "1002"}, {"Alan", "1003"}},
	}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Fatal(diff)
	}

	_, err = out.Select("student_count")
	require.ErrorContains(t, err, `no column "student_count"`)
}

func TestNormalizeSkipAfterHeader(t *testing.T) {
	raw := RawTable{{"School", "ADA", "ADM", "Student Count"}}
	for i := 0; i < 35; i++ {
		raw = append(raw, []string{"metadata"})
	}
	raw = append(raw,
		[]string{"North", "95.1", "402", "410"},
		[]string{"South", "93.4", "388", "401"},
	)

	out, err := Normalize(context.Background(), raw, Options{
		SkipAfterHeader: 35,
		DropColumns:     []string{"Student Count"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"school", "ada", "adm"}, out.Columns)
	require.Equal(t, [][]string{{"North", "95.1", "402"}, {"South", "93.4", "388"}}, out.Rows)
}

func TestNormalizeAggregateColumn(t *testing.T) {
	raw := RawTable{
		{"Grade", "Section", "Total"},
		{"5", "A", "20"},
		{"5", "Total", "20"},
		{"6", "A", "15"},
	}
	out, err := Normalize(context.Background(), raw, Options{
		Aggregate: Aggregate{Column: "Section", Sentinel: "Total"},
	})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"5", "A", "20"}, {"6", "A", "15"}}, out.Rows)

	_, err = Normalize(context.Background(), raw, Options{
		Aggregate: Aggregate{Column: "homeroom", Sentinel: "Total"},
	})
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	require.Equal(t, KindMissingColumn, formatErr.Kind)
}

func TestNormalizeAggregateIgnoresWidth(t *testing.T) {
	raw := RawTable{
		{"Name", "Grade"},
		{"A", "5"},
		{"All Records"},
	}
	out, err := Normalize(context.Background(), raw, Options{Aggregate: Aggregate{Sentinel: "All Records"}})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"A", "5"}}, out.Rows)
}

func TestNormalizeAggregateSentinelWhitespace(t *testing.T) {
	raw := RawTable{
		{"Name", "Count"},
		{"A", "1"},
		{" All Records", "1"},
	}
	for _, sentinel := range []string{"All Records", "All Records ", "\tAll Records"} {
		out, err := Normalize(context.Background(), raw, Options{Aggregate: Aggregate{Sentinel: sentinel}})
		require.NoError(t, err)
		require.Equal(t, [][]string{{"A", "1"}}, out.Rows, "sentinel %q", sentinel)
	}

	out, err := Normalize(context.Background(), raw, Options{Aggregate: Aggregate{Sentinel: "  "}})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
}

func TestNormalizeDropRow(t *testing.T) {
	raw := RawTable{
		{"Name", "Grade"},
		{"A", "5"},
		{"", ""},
		{"B", "6"},
	}
	out, err := Normalize(context.Background(), raw, Options{
		DropRow: func(row []string) bool {
			return row[0] == "" && row[1] == ""
		},
	})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"A", "5"}, {"B", "6"}}, out.Rows)
}

func TestNormalizeRowWidth(t *testing.T) {
	raw := RawTable{
		{"Name", "Grade", "Student Count"},
		{"A", "5", "20"},
		{"B", "6"},
	}
	_, err := Normalize(context.Background(), raw, Options{DropColumns: []string{"student_count"}})
	require.ErrorIs(t, err, ErrFormat)

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	require.Equal(t, KindRowWidth, formatErr.Kind)
	require.Equal(t, 2, formatErr.Row)
}

func TestNormalizeOffsets(t *testing.T) {
	raw := RawTable{{"Name"}, {"A"}}
	cases := []struct {
		opts Options
		kind ErrorKind
	}{
		{opts: Options{HeaderRow: 2}, kind: KindHeaderOffset},
		{opts: Options{HeaderRow: 10}, kind: KindHeaderOffset},
		{opts: Options{HeaderRow: -1}, kind: KindHeaderOffset},
		{opts: Options{SkipAfterHeader: 2}, kind: KindDataOffset},
		{opts: Options{SkipAfterHeader: -1}, kind: KindDataOffset},
	}
	for _, test := range cases {
		_, err := Normalize(context.Background(), raw, test.opts)
		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr), "options %+v", test.opts)
		require.Equal(t, test.kind, formatErr.Kind)
	}

	_, err := Normalize(context.Background(), nil, Options{})
	require.ErrorIs(t, err, ErrFormat)

	out, err := Normalize(context.Background(), raw, Options{SkipAfterHeader: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"name"}, out.Columns)
	require.Empty(t, out.Rows)
}

func TestNormalizeCollision(t *testing.T) {
	raw := RawTable{
		{"Grade Level", "Grade-Level", "Name"},
		{"5", "5", "A"},
	}
	_, err := Normalize(context.Background(), raw, Options{})
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	require.Equal(t, KindDuplicateColumn, formatErr.Kind)
	require.Contains(t, formatErr.Error(), "grade_level")

	out, err := Normalize(context.Background(), raw, Options{DropColumns: []string{"grade level"}})
	require.NoError(t, err)
	require.Equal(t, []string{"name"}, out.Columns)
}

func TestNormalizeMissingDropColumn(t *testing.T) {
	raw := RawTable{
		{"Name", "Students Count"},
		{"A", "3"},
	}
	type missing struct {
		column     string
		suggestion string
	}
	var got []missing
	out, err := Normalize(context.Background(), raw, Options{
		DropColumns: []string{"Student Count", "zzz"},
		OnMissingColumn: func(column, suggestion string) {
			got = append(got, missing{column: column, suggestion: suggestion})
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"name", "students_count"}, out.Columns)

	expected := []missing{
		{column: "student_count", suggestion: "students_count"},
		{column: "zzz", suggestion: ""},
	}
	if diff := cmp.Diff(expected, got, cmp.AllowUnexported(missing{})); diff != "" {
		t.Fatal(diff)
	}
}

func TestFormatErrorMessage(t *testing.T) {
	err := error(&FormatError{Kind: KindRowWidth, Row: 4, Msg: "row has 2 cells, header has 3"})
	require.Equal(t, "format error: row width at row 4: row has 2 cells, header has 3", err.Error())
	require.True(t, errors.Is(err, ErrFormat))
	require.True(t, errors.Is(fmtWrap(err), ErrFormat))
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("normalize ada_adm"), err)
}
