package table

import (
	"context"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("icreports.lib.table")

// suggestionThreshold is the minimum Jaro-Winkler similarity for a header
// to be suggested in place of a missing drop column.
const suggestionThreshold = 0.8

// Aggregate identifies synthetic summary rows by a sentinel value.
type Aggregate struct {
	// Column is the canonical name of the column holding the sentinel,
	// empty means the first column.
	Column   string
	Sentinel string
}

type Options struct {
	// HeaderRow is the index of the header row, every row before it is discarded.
	HeaderRow int
	// SkipAfterHeader is the number of metadata rows between the header and the data.
	SkipAfterHeader int
	// DropColumns are removed if present, matched on their canonical names.
	DropColumns []string
	// Aggregate rows are removed, a zero Aggregate removes nothing.
	Aggregate Aggregate
	// DropRow, if set, removes any other raw data row it returns true for.
	DropRow func(row []string) bool
	// OnMissingColumn, if set, is called for every drop column that is not
	// present with the closest existing column or "" if nothing is close.
	OnMissingColumn func(column, suggestion string)
}

func suggest(name string, columns []string) string {
	best := ""
	bestScore := 0.0
	for _, c := range columns {
		score := matchr.JaroWinkler(name, c, false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}

func (o Options) aggregateIndex(columns []string) (int, error) {
	if strings.TrimSpace(o.Aggregate.Sentinel) == "" {
		return -1, nil
	}
	if o.Aggregate.Column == "" {
		return 0, nil
	}
	name := CleanHeader(o.Aggregate.Column)
	for i, c := range columns {
		if c == name {
			return i, nil
		}
	}
	return -1, formatErrorf(KindMissingColumn, o.HeaderRow, "aggregate column %q is not in the header", name)
}

// Normalize locates the header, cleans the column names, drops the
// excluded columns and the aggregate rows and checks that every remaining
// row is as wide as the header. Row order is preserved.
func Normalize(ctx context.Context, raw RawTable, opts Options) (CanonicalTable, error) {
	ctx, span := tracer.Start(ctx, "Normalize")
	defer span.End()
	span.SetAttributes(
		attribute.Int("raw_rows", len(raw)),
		attribute.Int("header_row", opts.HeaderRow),
	)

	table, err := normalize(ctx, raw, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to normalize table")
		return CanonicalTable{}, err
	}
	span.SetAttributes(
		attribute.Int("columns", len(table.Columns)),
		attribute.Int("rows", len(table.Rows)),
	)
	return table, nil
}

func normalize(ctx context.Context, raw RawTable, opts Options) (CanonicalTable, error) {
	if opts.HeaderRow < 0 || opts.HeaderRow >= len(raw) {
		return CanonicalTable{}, formatErrorf(
			KindHeaderOffset, -1,
			"header row %d is outside a table of %d rows", opts.HeaderRow, len(raw),
		)
	}
	dataStart := opts.HeaderRow + 1 + opts.SkipAfterHeader
	if opts.SkipAfterHeader < 0 || dataStart > len(raw) {
		return CanonicalTable{}, formatErrorf(
			KindDataOffset, -1,
			"data starts at row %d in a table of %d rows", dataStart, len(raw),
		)
	}

	header := raw[opts.HeaderRow]
	columns := cleanHeaders(header)

	drop := map[string]bool{}
	for _, d := range opts.DropColumns {
		drop[CleanHeader(d)] = true
	}
	present := map[string]bool{}
	for _, c := range columns {
		present[c] = true
	}
	for _, d := range opts.DropColumns {
		name := CleanHeader(d)
		if present[name] {
			continue
		}
		suggestion := suggest(name, columns)
		slog.DebugContext(ctx, "drop column not present", "column", name, "suggestion", suggestion)
		if opts.OnMissingColumn != nil {
			opts.OnMissingColumn(name, suggestion)
		}
	}

	var keep []int
	seen := map[string]int{}
	for i, c := range columns {
		if drop[c] {
			continue
		}
		if first, ok := seen[c]; ok {
			return CanonicalTable{}, formatErrorf(
				KindDuplicateColumn, opts.HeaderRow,
				"headers %q (column %d) and %q (column %d) both clean to %q",
				header[first], first, header[i], i, c,
			)
		}
		seen[c] = i
		keep = append(keep, i)
	}

	aggIdx, err := opts.aggregateIndex(columns)
	if err != nil {
		return CanonicalTable{}, err
	}

	out := CanonicalTable{Columns: make([]string, len(keep))}
	for i, idx := range keep {
		out.Columns[i] = columns[idx]
	}

	sentinel := strings.TrimSpace(opts.Aggregate.Sentinel)
	dropped := 0
	for r := dataStart; r < len(raw); r++ {
		row := raw[r]
		if aggIdx >= 0 && aggIdx < len(row) && strings.TrimSpace(row[aggIdx]) == sentinel {
			dropped++
			continue
		}
		if opts.DropRow != nil && opts.DropRow(row) {
			dropped++
			continue
		}
		if len(row) != len(header) {
			return CanonicalTable{}, formatErrorf(
				KindRowWidth, r,
				"row has %d cells, header has %d (%d after dropping columns)",
				len(row), len(header), len(keep),
			)
		}

		values := make([]string, len(keep))
		for i, idx := range keep {
			values[i] = row[idx]
		}
		out.Rows = append(out.Rows, values)
	}

	slog.DebugContext(
		ctx, "normalized table",
		"columns", len(out.Columns),
		"rows", len(out.Rows),
		"dropped_rows", dropped,
	)
	return out, nil
}
