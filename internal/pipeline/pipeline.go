// Package pipeline orchestrates the calorie query flow: intent gate, text
// analysis, candidate resolution, modification, and aggregation. Every
// stage degrades rather than fails; the only terminal outcomes are a
// computed result or a clarification.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/nlp"
	"github.com/AA-Fatima/599-cal/internal/parse"
	"github.com/AA-Fatima/599-cal/internal/refstore"
	"github.com/AA-Fatima/599-cal/internal/resilience"
	"github.com/AA-Fatima/599-cal/internal/suggest"
	"github.com/AA-Fatima/599-cal/internal/synonym"
	"github.com/AA-Fatima/599-cal/internal/textutil"
	"github.com/AA-Fatima/599-cal/internal/units"
)

// Clarification messages. These are part of the API surface: clients
// match on them.
const (
	msgNotCalorieQuery = "I can help with calories. Please ask about a dish or ingredient."
	msgDishNotFound    = "Dish not found. Please confirm or list ingredients."
)

// Missing-log reasons.
const (
	reasonNotCalorieQuery = "not a calorie question"
	reasonDishNotFound    = "dish not found"
	reasonRecipeUnloaded  = "recipe fetch failed"
)

// Request is one query with optional structured modifications alongside
// the free-text ones.
type Request struct {
	Query         string
	SessionID     string
	Modifications model.ModificationSet
}

// Pipeline wires the query stages together.
type Pipeline struct {
	classifier nlp.Classifier
	extractor  nlp.Extractor
	canon      *synonym.Canonicalizer
	convert    *units.Converter
	resolver   *Resolver
	modifier   *Modifier
	aggregator *Aggregator
	catalog    refstore.Catalog
	missing    refstore.MissingLog
	suggester  suggest.Suggester
	retry      resilience.RetryConfig

	defaultWeightG float64
}

// Options tunes pipeline behavior.
type Options struct {
	// DishThreshold is the minimum 0-100 dish match score.
	DishThreshold float64
	// DefaultWeightG is the weight for ingredient lines with no quantity.
	DefaultWeightG float64
	// Retry applies to catalog recipe fetches.
	Retry resilience.RetryConfig
}

// New creates a Pipeline. classifier, extractor and suggester may be the
// local fallbacks (nlp.StaticClassifier, nlp.LexiconExtractor,
// suggest.Disabled) when no external services are configured.
func New(
	classifier nlp.Classifier,
	extractor nlp.Extractor,
	canon *synonym.Canonicalizer,
	convert *units.Converter,
	catalog refstore.Catalog,
	missing refstore.MissingLog,
	source NutritionSource,
	suggester suggest.Suggester,
	opts Options,
) *Pipeline {
	if opts.DefaultWeightG <= 0 {
		opts.DefaultWeightG = 100
	}
	return &Pipeline{
		classifier:     classifier,
		extractor:      extractor,
		canon:          canon,
		convert:        convert,
		resolver:       NewResolver(catalog, canon, opts.DishThreshold),
		modifier:       NewModifier(convert, canon, opts.DefaultWeightG),
		aggregator:     NewAggregator(source),
		catalog:        catalog,
		missing:        missing,
		suggester:      suggester,
		retry:          opts.Retry,
		defaultWeightG: opts.DefaultWeightG,
	}
}

// Warmup loads the synonym and unit tables eagerly so the first query
// does not pay the cost. Failures are already degraded inside the tables.
func (p *Pipeline) Warmup(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { p.canon.Warm(ctx); return nil })
	g.Go(func() error { p.convert.Warm(ctx); return nil })
	return g.Wait()
}

// Handle answers a bare free-text query.
func (p *Pipeline) Handle(ctx context.Context, query string) model.Outcome {
	return p.HandleRequest(ctx, Request{Query: query})
}

// HandleRequest answers a query with optional structured modifications.
func (p *Pipeline) HandleRequest(ctx context.Context, req Request) model.Outcome {
	log := zap.L().With(zap.String("query", req.Query), zap.String("session_id", req.SessionID))

	intent, err := p.classifier.Predict(ctx, req.Query)
	if err != nil {
		// an unreachable classifier must not block food queries
		log.Warn("pipeline: intent classification failed, assuming calorie query", zap.Error(err))
		intent = nlp.Intent{Label: nlp.IntentCalorieQuery}
	}
	if intent.Label != nlp.IntentCalorieQuery {
		log.Info("pipeline: rejected by intent gate", zap.String("label", intent.Label))
		p.recordMissing(ctx, req, reasonNotCalorieQuery)
		return clarify(msgNotCalorieQuery, nil)
	}

	parsed := p.analyze(ctx, req.Query)
	resolution := p.resolver.Resolve(ctx, parsed)

	switch resolution.Kind {
	case model.ResolutionDish:
		return p.answerDish(ctx, req, parsed, resolution.Dish)
	case model.ResolutionIngredient:
		return p.answerIngredient(ctx, parsed, resolution.Ingredient)
	default:
		return p.answerUnresolved(ctx, req, parsed)
	}
}

// analyze runs text normalization, quantity extraction and entity
// tagging. Extractor failures degrade to no entities.
func (p *Pipeline) analyze(ctx context.Context, query string) model.ParsedQuery {
	normalized := textutil.Normalize(query)
	parsed := model.ParsedQuery{
		Raw:        query,
		Normalized: normalized,
		Tokens:     textutil.Tokenize(normalized),
		Quantities: parse.Quantities(normalized),
	}

	entities, err := p.extractor.Extract(ctx, query)
	if err != nil {
		zap.L().Warn("pipeline: entity extraction failed", zap.String("query", query), zap.Error(err))
		return parsed
	}
	parsed.DishNames = entities.Dishes
	parsed.IngredientNames = entities.Ingredients
	return parsed
}

func (p *Pipeline) answerDish(ctx context.Context, req Request, parsed model.ParsedQuery, dish *model.Dish) model.Outcome {
	var ingredients []model.IngredientRef
	err := resilience.Do(ctx, p.retry, func(ctx context.Context) error {
		var fetchErr error
		ingredients, fetchErr = p.catalog.GetIngredients(ctx, dish.ID)
		return fetchErr
	})
	if err != nil {
		zap.L().Error("pipeline: recipe fetch failed", zap.String("dish", dish.Name), zap.Error(err))
		p.recordMissing(ctx, req, reasonRecipeUnloaded)
		return clarify(msgDishNotFound, nil)
	}
	if len(ingredients) == 0 {
		p.recordMissing(ctx, req, reasonDishNotFound)
		return clarify(msgDishNotFound, nil)
	}

	resolved := *dish
	resolved.Ingredients = ingredients

	specs, notes := p.modifier.Apply(ctx, &resolved, parsed, req.Modifications)
	result := p.aggregator.Compute(ctx, resolved.Name, specs, notes)
	return model.Outcome{Result: &result}
}

// answerIngredient computes a single-line result. The first parsed
// quantity sets the weight; without one the default applies.
func (p *Pipeline) answerIngredient(ctx context.Context, parsed model.ParsedQuery, name string) model.Outcome {
	weight := p.defaultWeightG
	if len(parsed.Quantities) > 0 {
		weight, _ = p.convert.ToGrams(ctx, name, parsed.Quantities[0])
	}

	specs := []LineSpec{{Name: name, WeightG: weight}}
	result := p.aggregator.Compute(ctx, name, specs, nil)
	return model.Outcome{Result: &result}
}

func (p *Pipeline) answerUnresolved(ctx context.Context, req Request, parsed model.ParsedQuery) model.Outcome {
	p.recordMissing(ctx, req, reasonDishNotFound)

	var suggested []string
	if guess := p.dishGuess(parsed); guess != "" {
		var err error
		suggested, err = p.suggester.SuggestIngredients(ctx, guess)
		if err != nil {
			zap.L().Warn("pipeline: ingredient suggestion failed", zap.String("dish", guess), zap.Error(err))
			suggested = nil
		}
	}
	return clarify(msgDishNotFound, suggested)
}

// dishGuess picks the most plausible dish mention to ask the suggester
// about.
func (p *Pipeline) dishGuess(parsed model.ParsedQuery) string {
	if len(parsed.DishNames) > 0 {
		return strings.Join(parsed.DishNames, " ")
	}
	if len(parsed.Tokens) > 0 {
		return parsed.Normalized
	}
	return ""
}

// recordMissing logs the query for curators. Recording failures are
// logged and swallowed: the missing log must never break an answer.
func (p *Pipeline) recordMissing(ctx context.Context, req Request, reason string) {
	if err := p.missing.RecordMissing(ctx, req.SessionID, req.Query, reason); err != nil {
		zap.L().Warn("pipeline: missing-log record failed", zap.String("query", req.Query), zap.Error(err))
	}
}

func clarify(message string, suggested []string) model.Outcome {
	return model.Outcome{Clarification: &model.ClarificationRequest{
		Message:              message,
		SuggestedIngredients: suggested,
	}}
}
