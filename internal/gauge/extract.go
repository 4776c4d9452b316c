package gauge

import (
	"regexp"
	"strconv"
)

// percentagePatterns are tried in order; the first pattern with any match wins.
// Each captures a number and an optional upper bound of a range.
var percentagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Percentage:\s*(\d+)(?:-(\d+))?%`),
	regexp.MustCompile(`(\d+)(?:-(\d+))?%`),
}

// ExtractPercentage parses the gauge percentage from a model response.
//
// The labeled "Percentage: N%" form is preferred over a bare "N%" anywhere in
// the text. Only the first match of the first matching pattern is used: the
// response format puts the authoritative figure on a single Percentage line,
// so later figures (observations, calculations) are ignored.
//
// For a range such as "30-35%" the upper bound is returned. That tie-break is
// a product decision: ambiguous readings are reported high.
//
// The boolean is false when no percentage in [0,100] is found. Callers must
// treat that as a failed reading, never as 0%.
func ExtractPercentage(text string) (int, bool) {
	for _, re := range percentagePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		digits := m[1]
		if m[2] != "" {
			digits = m[2]
		}

		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 || n > 100 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
