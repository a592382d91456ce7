package table

import (
	"strconv"
	"strings"
	"unicode"
)

const joiner = '_'

// CleanHeader turns a raw header into a canonical column identifier. It
// lowercases, collapses each whitespace run into one joiner and replaces
// every other rune outside [a-z0-9_] with the joiner. Leading and trailing
// whitespace is removed first. CleanHeader(CleanHeader(h)) == CleanHeader(h).
func CleanHeader(header string) string {
	header = strings.ToLower(strings.TrimSpace(header))

	var sb strings.Builder
	sb.Grow(len(header))
	inSpace := false
	for _, r := range header {
		if unicode.IsSpace(r) {
			if !inSpace {
				sb.WriteRune(joiner)
			}
			inSpace = true
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == joiner {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(joiner)
	}
	return sb.String()
}

// unnamed is the identifier given to a blank header at index i.
func unnamed(i int) string {
	return "unnamed__" + strconv.Itoa(i)
}

func cleanHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = CleanHeader(h)
		if out[i] == "" {
			out[i] = unnamed(i)
		}
	}
	return out
}
