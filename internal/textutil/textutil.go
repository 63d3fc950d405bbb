// Package textutil provides the shared text normalization and string
// similarity helpers used across the resolution pipeline.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks strips combining marks (Latin diacritics, Arabic harakat)
// while leaving base letters intact, so cross-script synonym keys survive
// normalization.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// wordRe matches runs of Latin or Arabic-block letters.
var wordRe = regexp.MustCompile(`[a-zA-Z\x{0600}-\x{06FF}]+`)

// Normalize lowercases, trims and folds diacritics from free text.
func Normalize(s string) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// NormalizeKey canonicalizes a lookup-table key: lowercase, trimmed, inner
// whitespace collapsed to single spaces. Applied on both write and read so
// table hits never depend on incidental spacing.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokenize splits normalized text into letter runs, keeping order.
func Tokenize(s string) []string {
	return wordRe.FindAllString(s, -1)
}

// FuzzyRatio returns a 0-100 similarity score between two strings.
func FuzzyRatio(a, b string) float64 {
	return levenshtein.Match(Normalize(a), Normalize(b), levenshtein.NewParams()) * 100
}

// BestMatch returns the candidate with the highest fuzzy ratio against
// name, with its score. Returns ("", 0) for an empty candidate list. Ties
// keep the earliest candidate, so a stable corpus ordering gives stable
// results.
func BestMatch(name string, candidates []string) (string, float64) {
	var best string
	var bestScore float64
	for _, c := range candidates {
		if score := FuzzyRatio(name, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}

// ContainsEither reports symmetric substring containment between two
// normalized terms. Deliberately loose in both directions to tolerate
// partial names ("tomato" vs "sun-dried tomato paste").
func ContainsEither(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
