// Package parse extracts quantity/unit pairs from free text with a fixed
// grammar: a decimal number optionally followed by whitespace and a known
// unit token (metric, kitchen, or the Arabic equivalents). The scan keeps
// every non-overlapping match in order of appearance and does no entity
// disambiguation; tying a quantity to a specific ingredient is a substring
// heuristic applied downstream.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AA-Fatima/599-cal/internal/model"
)

// unitAlternatives lists every recognized unit token, longest spelling
// first so the alternation never truncates a match ("grams" before "g").
var unitAlternatives = []string{
	"grams", "gram", "g",
	"kilograms", "kilogram", "kg",
	"tablespoons", "tablespoon", "tbsp",
	"teaspoons", "teaspoon", "tsp",
	"cups", "cup",
	"pieces", "piece",
	"ملعقة كبيرة", "ملعقه كبيره", "م ك",
	"ملعقة صغيرة", "ملعقه صغيره", "م ص",
	"غرام", "غم", "كغ",
	"كوب",
	"حبة", "حبه",
}

var quantityRe = regexp.MustCompile(
	`(?i)(\d+(?:\.\d+)?)\s*(` + strings.Join(unitAlternatives, "|") + `)`,
)

// Match is one grammar hit, with its byte offset in the scanned text so
// callers can apply nearest-mention heuristics.
type Match struct {
	Quantity model.Quantity
	Start    int
}

// Scan returns every non-overlapping quantity match, left to right.
func Scan(text string) []Match {
	lower := strings.ToLower(text)
	idx := quantityRe.FindAllStringSubmatchIndex(lower, -1)
	matches := make([]Match, 0, len(idx))
	for _, m := range idx {
		amount, err := strconv.ParseFloat(lower[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		matches = append(matches, Match{
			Quantity: model.Quantity{Amount: amount, Unit: lower[m[4]:m[5]]},
			Start:    m[0],
		})
	}
	return matches
}

// Quantities is Scan without positions.
func Quantities(text string) []model.Quantity {
	matches := Scan(text)
	qs := make([]model.Quantity, len(matches))
	for i, m := range matches {
		qs[i] = m.Quantity
	}
	return qs
}

// RawQuantity is a structured quantity entry as received on the wire,
// before numeric validation.
type RawQuantity struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// FromStructured validates structured quantity entries. Entries with a
// non-numeric or non-positive amount are discarded; processing continues
// with the rest.
func FromStructured(raw []RawQuantity) []model.Quantity {
	qs := make([]model.Quantity, 0, len(raw))
	for _, r := range raw {
		amount, err := strconv.ParseFloat(strings.TrimSpace(r.Amount), 64)
		if err != nil || amount <= 0 {
			continue
		}
		qs = append(qs, model.Quantity{Amount: amount, Unit: strings.ToLower(strings.TrimSpace(r.Unit))})
	}
	return qs
}
