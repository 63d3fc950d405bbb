package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/refstore"
	"github.com/AA-Fatima/599-cal/internal/synonym"
)

// Resolver maps a parsed query to a dish or a single ingredient. Dish
// resolution wins over ingredient resolution whenever a dish candidate
// clears the acceptance threshold.
type Resolver struct {
	catalog   refstore.Catalog
	canon     *synonym.Canonicalizer
	threshold float64
}

// NewResolver creates a Resolver. threshold is the minimum 0-100 dish
// match score; zero means the default of 70.
func NewResolver(catalog refstore.Catalog, canon *synonym.Canonicalizer, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = 70
	}
	return &Resolver{catalog: catalog, canon: canon, threshold: threshold}
}

// Resolve never fails: catalog errors degrade to an unresolved outcome so
// the caller answers with a clarification instead of an error.
func (r *Resolver) Resolve(ctx context.Context, parsed model.ParsedQuery) model.Resolution {
	log := zap.L().With(zap.String("query", parsed.Raw))

	for _, candidate := range r.dishCandidates(ctx, parsed) {
		dish, score, err := r.catalog.FindDishByName(ctx, candidate)
		if err != nil {
			log.Warn("resolve: dish lookup failed", zap.String("candidate", candidate), zap.Error(err))
			continue
		}
		if dish == nil || score < r.threshold {
			continue
		}
		log.Debug("resolve: dish accepted",
			zap.String("candidate", candidate),
			zap.String("dish", dish.Name),
			zap.Float64("score", score),
		)
		return model.ResolvedDish(dish, score)
	}

	if ingredient := r.joinCanonical(ctx, parsed.IngredientNames); ingredient != "" {
		return model.ResolvedIngredient(ingredient, 100)
	}

	return model.Unresolved()
}

// dishCandidates prefers explicitly tagged dish mentions, joined into one
// phrase ("chicken" + "fajita" is the dish "chicken fajita", not two
// candidates); when the query carries none, the canonicalized token phrase
// itself is the candidate so bare queries like "فاهيتا" still resolve.
func (r *Resolver) dishCandidates(ctx context.Context, parsed model.ParsedQuery) []string {
	if phrase := r.joinCanonical(ctx, parsed.DishNames); phrase != "" {
		return []string{phrase}
	}
	if len(parsed.Tokens) == 0 {
		return nil
	}
	canonical := r.canon.Apply(ctx, parsed.Tokens)
	candidates := []string{strings.Join(canonical, " ")}
	seen := map[string]bool{candidates[0]: true}
	for _, tok := range canonical {
		if !seen[tok] {
			seen[tok] = true
			candidates = append(candidates, tok)
		}
	}
	return candidates
}

// joinCanonical canonicalizes each extracted name and joins them into the
// single phrase the lookup runs against. Entity taggers emit per-token
// mentions, so the mentions of one query describe one food.
func (r *Resolver) joinCanonical(ctx context.Context, names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(r.canon.Apply(ctx, names), " "))
}
