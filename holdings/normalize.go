package holdings

import (
	"regexp"
	"strings"
)

var (
	spaceRun    = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^A-Z0-9_\s]`)
	nameAbbrevs = []struct {
		word *regexp.Regexp
		abbr string
	}{
		{regexp.MustCompile(`\bLIMITED\b`), "LTD"},
		{regexp.MustCompile(`\bINCORPORATED\b`), "INC"},
		{regexp.MustCompile(`\bCORPORATION\b`), "CORP"},
	}
)

// NormalizeName folds the spelling variants brokers use for one security
// name ("Infosys Limited", "INFOSYS LTD.") into a single grouping key.
func NormalizeName(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	s = punctuation.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	for _, a := range nameAbbrevs {
		s = a.word.ReplaceAllString(s, a.abbr)
	}
	return strings.TrimSpace(s)
}
