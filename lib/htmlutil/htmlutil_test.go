package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "", expected: ""},
		{in: "  Student   Count \n", expected: "Student Count"},
		{in: " All Records ", expected: "All Records"},
		{in: "Grade\u200b", expected: "Grade"},
		{in: "a\tb\nc", expected: "a b c"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, NormalizeText(test.in), "input %q", test.in)
	}
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td> <b>First</b>&nbsp;Name<br>(legal) </td></tr></table>`,
	))
	require.NoError(t, err)

	require.Equal(t, "First Name (legal)", SelectionText(doc.Find("td")))
	require.Equal(t, "First", GetText(doc.Find("b").Nodes[0]))
}
