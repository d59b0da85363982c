package compact

import (
	"regexp"
	"strings"
)

var (
	excessiveNewlines   = regexp.MustCompile(`\n{3,}`)
	excessiveHorizontal = regexp.MustCompile(`[ \t]{2,}`)
)

// CollapseWhitespace collapses runs of 3+ newlines to two, runs of 2+
// spaces or tabs to one space, and trims the result. Newlines are handled
// separately from other whitespace so paragraph breaks survive the second
// pass.
func CollapseWhitespace(text string) string {
	text = excessiveNewlines.ReplaceAllString(text, "\n\n")
	text = excessiveHorizontal.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
