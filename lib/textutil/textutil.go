package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// collapses the whitespace soup the portal puts inside <td> cells
// (newlines, tabs, &nbsp;) down to single spaces
func CleanCell(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.Trim(text, " ")
}
