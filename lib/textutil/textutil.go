package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName produces an index key for an entity name: lowercased with
// all whitespace removed. "The University of  Toronto" -> "theuniversityoftoronto".
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	return whitespaceRegex.ReplaceAllString(name, "")
}

// Fold lowercases, trims and collapses inner whitespace to single spaces.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// ContainsFold reports whether `needle` appears in `haystack` after both
// are folded.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// MatchName returns the indices of every candidate that contains `name`,
// compared with ContainsFold.
func MatchName(name string, candidates []string) []int {
	var matches []int
	for i, c := range candidates {
		if ContainsFold(c, name) {
			matches = append(matches, i)
		}
	}
	return matches
}

// SplitList splits a loosely formatted list cell ("a, b c\nd") on commas and
// whitespace, dropping empty items.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
