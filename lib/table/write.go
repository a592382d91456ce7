package table

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultSheet = "Sheet1"
	maxSheetName = 31
)

// WriteCSV writes the header followed by every row, without an index column.
func WriteCSV(w io.Writer, t CanonicalTable) error {
	writer := csv.NewWriter(w)
	err := writer.Write(t.Columns)
	if err != nil {
		return err
	}
	err = writer.WriteAll(t.Rows)
	if err != nil {
		return err
	}
	return writer.Error()
}

// SheetName turns name into a valid worksheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if name == "" {
		return defaultSheet
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}

// WriteXLSX writes the table as a workbook with a single sheet, cells are
// stored as text.
func WriteXLSX(w io.Writer, t CanonicalTable, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(defaultSheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	err = sw.SetRow("A1", header)
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = sw.SetRow(cell, values)
		if err != nil {
			return err
		}
	}
	err = sw.Flush()
	if err != nil {
		return err
	}

	name := SheetName(sheet)
	if name != defaultSheet {
		err = f.SetSheetName(defaultSheet, name)
		if err != nil {
			return err
		}
	}
	return f.Write(w)
}

// WriteFile writes the table to path in the given output format. The file
// is written next to path first and renamed into place, so readers never
// see a partial file.
func WriteFile(ctx context.Context, path string, t CanonicalTable, output Output) (err error) {
	_, span := tracer.Start(ctx, "WriteFile")
	defer span.End()
	span.SetAttributes(
		attribute.String("path", path),
		attribute.String("output", string(output)),
		attribute.Int("rows", len(t.Rows)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write table")
		}
	}()

	var write func(io.Writer) error
	switch output {
	case OutputCSV:
		write = func(w io.Writer) error {
			return WriteCSV(w, t)
		}
	case OutputXLSX:
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		write = func(w io.Writer) error {
			return WriteXLSX(w, t, name)
		}
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	err = write(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	err = os.Chmod(tmp.Name(), 0644)
	if err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
