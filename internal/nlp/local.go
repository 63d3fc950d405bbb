package nlp

import (
	"context"
	"strings"

	"github.com/AA-Fatima/599-cal/internal/textutil"
)

// StaticClassifier labels every query as a calorie question. Used when no
// classifier model server is configured: the downstream resolution stages
// already reject queries that mention no known food.
type StaticClassifier struct{}

func (StaticClassifier) Predict(_ context.Context, _ string) (Intent, error) {
	return Intent{Label: IntentCalorieQuery, Confidence: 1}, nil
}

// VocabSource supplies the known names the lexicon extractor matches
// against. refstore.Store satisfies it.
type VocabSource interface {
	ListDishNames(ctx context.Context) ([]string, error)
	ListNutritionNames(ctx context.Context) ([]string, error)
}

// LexiconExtractor finds entities by scanning the normalized query for
// known catalog names. It is the fallback when no NER model server is
// configured; longer names are preferred implicitly because both name
// lists are matched in full.
type LexiconExtractor struct {
	vocab VocabSource
}

// NewLexiconExtractor creates an extractor over the given vocabulary.
func NewLexiconExtractor(vocab VocabSource) *LexiconExtractor {
	return &LexiconExtractor{vocab: vocab}
}

func (e *LexiconExtractor) Extract(ctx context.Context, text string) (Entities, error) {
	normalized := textutil.Normalize(text)
	var ents Entities

	dishes, err := e.vocab.ListDishNames(ctx)
	if err != nil {
		return Entities{}, err
	}
	for _, name := range dishes {
		if matchesText(normalized, name) {
			ents.Dishes = append(ents.Dishes, name)
		}
	}

	ingredients, err := e.vocab.ListNutritionNames(ctx)
	if err != nil {
		return Entities{}, err
	}
	for _, name := range ingredients {
		if matchesText(normalized, name) {
			ents.Ingredients = append(ents.Ingredients, name)
		}
	}
	return ents, nil
}

func matchesText(normalized, name string) bool {
	key := textutil.NormalizeKey(name)
	return key != "" && strings.Contains(normalized, key)
}
