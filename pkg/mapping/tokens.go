package mapping

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// fold case-folds text for case-insensitive comparison.
func fold(text string) string {
	return foldCaser.String(text)
}

// abbreviations expands domain tokens bidirectionally so that, e.g.,
// "Zip Code" and "Postal" overlap after expansion.
var abbreviations = map[string][]string{
	"zip":     {"zipcode", "postal"},
	"zipcode": {"zip", "postal"},
	"postal":  {"zip", "zipcode"},
	"code":    {"cd"},
	"cd":      {"code"},
	"number":  {"num", "no"},
	"num":     {"number", "no"},
	"no":      {"number", "num"},
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

// tokenize splits text into lowercase alphanumeric tokens and expands known
// abbreviations into the set.
func tokenize(text string) map[string]bool {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	expanded := make(map[string]bool, len(tokens)*2)
	for _, tok := range tokens {
		expanded[tok] = true
		for _, alt := range abbreviations[tok] {
			expanded[alt] = true
		}
	}
	return expanded
}

// tokenSimilarity scores two expanded token sets by Jaccard similarity.
func tokenSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
