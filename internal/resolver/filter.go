package resolver

import "strings"

// markers are phrases models use when they have no answer.
var markers = []string{
	"not ranked",
	"not available",
	"not know",
	"n/a",
	"none available",
	"none",
}

// Filter empties `value` when it contains a no-answer marker, ignoring case.
// The second result reports whether it did.
func Filter(value string) (string, bool) {
	lower := strings.ToLower(value)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return "", true
		}
	}
	return value, false
}
