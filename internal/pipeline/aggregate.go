package pipeline

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/AA-Fatima/599-cal/internal/model"
)

// NutritionSource resolves planned lines to per-100g records.
// nutrition.Lookup satisfies it.
type NutritionSource interface {
	ByName(ctx context.Context, name string) (*model.NutritionRecord, error)
	ByID(ctx context.Context, externalID int64) (*model.NutritionRecord, error)
}

// Aggregator turns a line plan into the final nutrition result.
type Aggregator struct {
	source NutritionSource
}

// NewAggregator creates an Aggregator.
func NewAggregator(source NutritionSource) *Aggregator {
	return &Aggregator{source: source}
}

// Compute resolves every line and sums the result. A line with no
// nutrition match contributes zeros and a note; the query still answers.
func (a *Aggregator) Compute(ctx context.Context, label string, specs []LineSpec, notes []string) model.NutritionResult {
	lines := make([]model.IngredientLine, 0, len(specs))
	for _, spec := range specs {
		rec := a.recordFor(ctx, spec)
		if rec == nil {
			zap.L().Info("aggregate: no nutrition data", zap.String("ingredient", spec.Name))
			notes = append(notes, "No nutrition data for "+spec.Name)
			lines = append(lines, model.IngredientLine{Name: spec.Name, WeightG: round2(spec.WeightG), Added: spec.Added})
			continue
		}
		lines = append(lines, scaleLine(spec, rec))
	}

	return model.NutritionResult{
		Label:       label,
		Ingredients: lines,
		Totals:      SumLines(lines),
		Notes:       notes,
	}
}

func (a *Aggregator) recordFor(ctx context.Context, spec LineSpec) *model.NutritionRecord {
	if spec.ExternalID != nil {
		rec, err := a.source.ByID(ctx, *spec.ExternalID)
		if err == nil && rec != nil {
			return rec
		}
		if err != nil {
			zap.L().Warn("aggregate: by-id lookup failed", zap.Int64("external_id", *spec.ExternalID), zap.Error(err))
		}
	}
	rec, err := a.source.ByName(ctx, spec.Name)
	if err != nil {
		zap.L().Warn("aggregate: by-name lookup failed", zap.String("ingredient", spec.Name), zap.Error(err))
		return nil
	}
	return rec
}

// scaleLine scales per-100g values to the line weight, rounding each
// column to two decimals. Missing macros count as zero.
func scaleLine(spec LineSpec, rec *model.NutritionRecord) model.IngredientLine {
	factor := spec.WeightG / 100
	return model.IngredientLine{
		Name:     spec.Name,
		WeightG:  round2(spec.WeightG),
		Calories: round2(rec.Calories * factor),
		ProteinG: round2(deref(rec.ProteinG) * factor),
		FatG:     round2(deref(rec.FatG) * factor),
		CarbsG:   round2(deref(rec.CarbsG) * factor),
		Added:    spec.Added,
	}
}

// SumLines sums the already-rounded line values, rounding each total once
// after summation. Summing rounded values keeps the totals row equal to
// what a reader adds up by hand from the displayed lines.
func SumLines(lines []model.IngredientLine) model.Totals {
	var t model.Totals
	for _, line := range lines {
		t.WeightG += line.WeightG
		t.Calories += line.Calories
		t.ProteinG += line.ProteinG
		t.FatG += line.FatG
		t.CarbsG += line.CarbsG
	}
	t.WeightG = round2(t.WeightG)
	t.Calories = round2(t.Calories)
	t.ProteinG = round2(t.ProteinG)
	t.FatG = round2(t.FatG)
	t.CarbsG = round2(t.CarbsG)
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
