package download

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"icreports/lib/table"
)

// EmptyRowThreshold is the number of rows the portal emits for a report
// with no records, a header and a footer.
const EmptyRowThreshold = 2

var rowDelimiter = regexp.MustCompile(`(?i)<tr[\s>/]`)

// CountRows returns the number of table row start tags in an HTML document.
func CountRows(html []byte) int {
	return len(rowDelimiter.FindAllIndex(html, -1))
}

// IsMeaningful reports whether an HTML export holds more than its header and footer rows.
func IsMeaningful(html []byte) bool {
	return CountRows(html) > EmptyRowThreshold
}

// IsMeaningfulDelimited reports whether a delimited export has a non-blank
// record at or after row dataStart, the first row past the header and the
// metadata rows that follow it. An export that does not parse is left to
// the normalizer to report.
func IsMeaningfulDelimited(data []byte, dataStart int) bool {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return false
	}
	rows, err := table.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return true
	}
	for i := max(dataStart, 0); i < len(rows); i++ {
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				return true
			}
		}
	}
	return false
}

// Classify reads the artifact at path and reports whether it holds data.
// dataStart is the index of the first data row of a delimited export.
func Classify(path string, format table.Format, dataStart int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read artifact: %w", err)
	}
	switch format {
	case table.FormatHTML:
		return IsMeaningful(data), nil
	case table.FormatCSV:
		return IsMeaningfulDelimited(data, dataStart), nil
	default:
		return false, fmt.Errorf("unknown format %q", format)
	}
}
