package pipeline

import (
	"context"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/nlp"
	"github.com/AA-Fatima/599-cal/internal/textutil"
)

// fakeCatalog serves a fixed dish list with exact and fuzzy name matching.
type fakeCatalog struct {
	dishes      []model.Dish
	findErr     error
	recipeErr   error
	recipeCalls int
}

func (f *fakeCatalog) FindDishByName(_ context.Context, name string) (*model.Dish, float64, error) {
	if f.findErr != nil {
		return nil, 0, f.findErr
	}
	key := textutil.NormalizeKey(name)
	for i := range f.dishes {
		if textutil.NormalizeKey(f.dishes[i].Name) == key {
			d := f.dishes[i]
			d.Ingredients = nil
			return &d, 100, nil
		}
	}
	names := make([]string, len(f.dishes))
	for i := range f.dishes {
		names[i] = f.dishes[i].Name
	}
	best, score := textutil.BestMatch(key, names)
	if best == "" || score < 40 {
		return nil, 0, nil
	}
	for i := range f.dishes {
		if f.dishes[i].Name == best {
			d := f.dishes[i]
			d.Ingredients = nil
			return &d, score, nil
		}
	}
	return nil, 0, nil
}

func (f *fakeCatalog) GetIngredients(_ context.Context, dishID int64) ([]model.IngredientRef, error) {
	f.recipeCalls++
	if f.recipeErr != nil {
		return nil, f.recipeErr
	}
	for i := range f.dishes {
		if f.dishes[i].ID == dishID {
			return f.dishes[i].Ingredients, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ListDishNames(_ context.Context) ([]string, error) {
	names := make([]string, len(f.dishes))
	for i := range f.dishes {
		names[i] = f.dishes[i].Name
	}
	return names, nil
}

// fakeSource serves per-100g records by normalized name or external ID.
type fakeSource struct {
	byName map[string]*model.NutritionRecord
	byID   map[int64]*model.NutritionRecord
}

func (f *fakeSource) ByName(_ context.Context, name string) (*model.NutritionRecord, error) {
	return f.byName[textutil.NormalizeKey(name)], nil
}

func (f *fakeSource) ByID(_ context.Context, externalID int64) (*model.NutritionRecord, error) {
	return f.byID[externalID], nil
}

// fakeMissing records missing-log writes in memory.
type fakeMissing struct {
	entries []model.MissingQuery
	err     error
}

func (f *fakeMissing) RecordMissing(_ context.Context, sessionID, query, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, model.MissingQuery{SessionID: sessionID, Query: query, Reason: reason})
	return nil
}

func (f *fakeMissing) ListMissing(_ context.Context, _ int) ([]model.MissingQuery, error) {
	return f.entries, nil
}

// fakeClassifier returns a fixed intent or error.
type fakeClassifier struct {
	intent nlp.Intent
	err    error
}

func (f fakeClassifier) Predict(context.Context, string) (nlp.Intent, error) {
	return f.intent, f.err
}

// fakeSuggester returns fixed suggestions.
type fakeSuggester struct {
	suggestions []string
	err         error
	calls       int
}

func (f *fakeSuggester) SuggestIngredients(context.Context, string) ([]string, error) {
	f.calls++
	return f.suggestions, f.err
}

func fajitaDish() model.Dish {
	tortillaID := int64(1002)
	return model.Dish{
		ID:      1,
		Name:    "fajita",
		Country: "mexico",
		Ingredients: []model.IngredientRef{
			{Name: "chicken breast", DefaultWeightG: 100},
			{Name: "tortilla", ExternalID: &tortillaID, DefaultWeightG: 60},
			{Name: "peppers", DefaultWeightG: 50},
			{Name: "olive oil", DefaultWeightG: 10},
		},
	}
}

func fixtureSource() *fakeSource {
	return &fakeSource{
		byName: map[string]*model.NutritionRecord{
			"chicken breast": {ExternalID: 1001, Name: "chicken breast", Calories: 120},
			"tortilla":       {ExternalID: 1002, Name: "tortilla", Calories: 250},
			"peppers":        {ExternalID: 1003, Name: "peppers", Calories: 30},
			"olive oil":      {ExternalID: 1004, Name: "olive oil", Calories: 300},
			"rice":           {ExternalID: 1005, Name: "rice", Calories: 130},
			"tomato":         {ExternalID: 2001, Name: "tomato", Calories: 18},
		},
		byID: map[int64]*model.NutritionRecord{
			1002: {ExternalID: 1002, Name: "tortilla", Calories: 250},
		},
	}
}
