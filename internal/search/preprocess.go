package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Fold case-folds s and strips combining marks, so "Kraków" and "KRAKOW"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Words splits s into folded word tokens.
func Words(s string) []string {
	return wordRE.FindAllString(Fold(s), -1)
}

// ApplicationText flattens the searchable fields of an application and its
// notes into one blob for indexing.
func ApplicationText(company, role string, tags []string, notes []string) string {
	var b strings.Builder
	b.WriteString(company)
	b.WriteByte(' ')
	b.WriteString(role)
	for _, t := range tags {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	for _, n := range notes {
		b.WriteByte(' ')
		b.WriteString(n)
	}
	return b.String()
}
