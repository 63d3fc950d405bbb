package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/parse"
	"github.com/AA-Fatima/599-cal/internal/synonym"
	"github.com/AA-Fatima/599-cal/internal/textutil"
	"github.com/AA-Fatima/599-cal/internal/units"
)

// LineSpec is one planned result line before nutrition lookup: a name, a
// gram weight, and the stable nutrition key when the recipe carries one.
type LineSpec struct {
	Name       string
	WeightG    float64
	ExternalID *int64
	Added      bool
}

// removeKeywords and addKeywords are the bilingual modification triggers,
// including common transliterations.
var (
	removeKeywords = []string{"without", "no", "minus", "bala", "بلا", "بدون", "منزوع"}
	addKeywords    = []string{"with", "add", "extra", "plus", "ma3", "مع", "زيد", "اضافة", "زيادة"}
)

// hasKeyword reports whether any token matches one of the keywords.
func hasKeyword(tokens []string, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if tok == kw {
				return true
			}
		}
	}
	return false
}

// Modifier applies recipe edits to a dish's base ingredient list.
// Removals always run before additions, so an ingredient that is both
// removed and re-added ends up present.
type Modifier struct {
	convert        *units.Converter
	canon          *synonym.Canonicalizer
	defaultWeightG float64
}

// NewModifier creates a Modifier. defaultWeightG is the weight assigned
// to an added ingredient with no quantity in the query; zero means 100.
func NewModifier(convert *units.Converter, canon *synonym.Canonicalizer, defaultWeightG float64) *Modifier {
	if defaultWeightG <= 0 {
		defaultWeightG = 100
	}
	return &Modifier{convert: convert, canon: canon, defaultWeightG: defaultWeightG}
}

// Apply builds the result line plan for a dish: the base recipe with the
// structured and in-text modifications applied. The returned notes record
// every edit in the order applied.
func (m *Modifier) Apply(ctx context.Context, dish *model.Dish, parsed model.ParsedQuery, mods model.ModificationSet) ([]LineSpec, []string) {
	lines := make([]LineSpec, 0, len(dish.Ingredients))
	for _, ref := range dish.Ingredients {
		lines = append(lines, LineSpec{Name: ref.Name, WeightG: ref.DefaultWeightG, ExternalID: ref.ExternalID})
	}

	var notes []string

	removeTerms := m.canonicalTerms(ctx, mods.Remove)
	if hasKeyword(parsed.Tokens, removeKeywords) {
		removeTerms = append(removeTerms, m.mentionedBaseNames(parsed.Normalized, lines)...)
	}
	lines, notes = m.applyRemovals(lines, removeTerms, notes)

	addTerms := m.canonicalTerms(ctx, mods.Add)
	if hasKeyword(parsed.Tokens, addKeywords) {
		addTerms = append(addTerms, m.mentionedIngredients(ctx, parsed)...)
	}
	lines, notes = m.applyAdditions(ctx, lines, addTerms, parsed, notes)

	return lines, notes
}

func (m *Modifier) canonicalTerms(ctx context.Context, terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if canonical := m.canon.Canonical(ctx, t); canonical != "" {
			out = append(out, canonical)
		}
	}
	return out
}

// mentionedBaseNames finds base recipe ingredients named in the query
// text; with a negation keyword present these are the implicit removals.
func (m *Modifier) mentionedBaseNames(normalized string, lines []LineSpec) []string {
	var out []string
	for _, line := range lines {
		if strings.Contains(normalized, textutil.NormalizeKey(line.Name)) {
			out = append(out, line.Name)
		}
	}
	return out
}

// mentionedIngredients returns the tagged ingredient mentions; with an
// addition keyword present these are the implicit additions.
func (m *Modifier) mentionedIngredients(ctx context.Context, parsed model.ParsedQuery) []string {
	return m.canonicalTerms(ctx, parsed.IngredientNames)
}

// applyRemovals drops every line matching a removal term by symmetric
// substring containment, so "cheese" removes "cheddar cheese" and the
// reverse. A term matching nothing is silently ignored.
func (m *Modifier) applyRemovals(lines []LineSpec, terms []string, notes []string) ([]LineSpec, []string) {
	if len(terms) == 0 {
		return lines, notes
	}

	kept := lines[:0]
	for _, line := range lines {
		removed := false
		for _, term := range terms {
			if textutil.ContainsEither(line.Name, term) {
				removed = true
				break
			}
		}
		if removed {
			notes = append(notes, "Removed "+line.Name)
		} else {
			kept = append(kept, line)
		}
	}
	return kept, notes
}

// applyAdditions appends a line for every add-term, even one naming an
// ingredient the recipe already has; the extra portion counts.
func (m *Modifier) applyAdditions(ctx context.Context, lines []LineSpec, terms []string, parsed model.ParsedQuery, notes []string) ([]LineSpec, []string) {
	for _, term := range terms {
		weight := m.weightForTerm(ctx, parsed, term)
		lines = append(lines, LineSpec{Name: term, WeightG: weight, Added: true})
		notes = append(notes, "Added "+formatWeight(weight)+"g "+term)
	}
	return lines, notes
}

// weightForTerm picks the parsed quantity closest in the text to the
// term's mention and converts it to grams. With no quantities at all, the
// default added weight applies.
func (m *Modifier) weightForTerm(ctx context.Context, parsed model.ParsedQuery, term string) float64 {
	matches := parse.Scan(parsed.Normalized)
	if len(matches) == 0 {
		return m.defaultWeightG
	}

	termPos := strings.Index(parsed.Normalized, textutil.NormalizeKey(term))
	best := matches[0]
	if termPos >= 0 {
		for _, match := range matches[1:] {
			if abs(match.Start-termPos) < abs(best.Start-termPos) {
				best = match
			}
		}
	}

	grams, _ := m.convert.ToGrams(ctx, term, best.Quantity)
	return grams
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
