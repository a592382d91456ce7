package table

import (
	"errors"
	"fmt"
)

// ErrFormat matches every *FormatError with errors.Is.
var ErrFormat = errors.New("format error")

type ErrorKind string

const (
	KindHeaderOffset    ErrorKind = "header offset"
	KindDataOffset      ErrorKind = "data offset"
	KindRowWidth        ErrorKind = "row width"
	KindDuplicateColumn ErrorKind = "duplicate column"
	KindMissingColumn   ErrorKind = "missing column"
	KindNoTable         ErrorKind = "no table"
	KindParse           ErrorKind = "parse"
)

// FormatError means the export was readable but is not shaped the way the
// report options describe. It is terminal for the report, retrying will not help.
type FormatError struct {
	Kind ErrorKind
	// Row is the zero based index of the offending row in the raw table, -1 if no row applies.
	Row int
	Msg string
}

func (e *FormatError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("format error: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("format error: %s at row %d: %s", e.Kind, e.Row, e.Msg)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func formatErrorf(kind ErrorKind, row int, format string, args ...any) *FormatError {
	return &FormatError{Kind: kind, Row: row, Msg: fmt.Sprintf(format, args...)}
}
