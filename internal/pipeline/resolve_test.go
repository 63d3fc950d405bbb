package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/parse"
	"github.com/AA-Fatima/599-cal/internal/synonym"
	"github.com/AA-Fatima/599-cal/internal/textutil"
)

func parsedQuery(raw string, dishes, ingredients []string) model.ParsedQuery {
	normalized := textutil.Normalize(raw)
	return model.ParsedQuery{
		Raw:             raw,
		Normalized:      normalized,
		Tokens:          textutil.Tokenize(normalized),
		Quantities:      parse.Quantities(normalized),
		DishNames:       dishes,
		IngredientNames: ingredients,
	}
}

func TestResolveDishFromTaggedMention(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("fajita calories", []string{"fajita"}, nil))
	require.Equal(t, model.ResolutionDish, res.Kind)
	assert.Equal(t, "fajita", res.Dish.Name)
	assert.Equal(t, 100.0, res.Confidence)
}

func TestResolveDishThroughSynonym(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("فاهيتا", []string{"فاهيتا"}, nil))
	require.Equal(t, model.ResolutionDish, res.Kind)
	assert.Equal(t, "fajita", res.Dish.Name)
}

func TestResolveJoinsDishMentions(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{
		{ID: 7, Name: "chicken"},
		{ID: 8, Name: "chicken fajita"},
	}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	// Per-token tagger output names one dish, not one dish per token.
	res := r.Resolve(context.Background(), parsedQuery("chicken fajita calories", []string{"chicken", "fajita"}, nil))
	require.Equal(t, model.ResolutionDish, res.Kind)
	assert.Equal(t, "chicken fajita", res.Dish.Name)
	assert.Equal(t, 100.0, res.Confidence)
}

func TestResolveJoinsIngredientMentions(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("2 tbsp olive oil", nil, []string{"olive", "oil"}))
	require.Equal(t, model.ResolutionIngredient, res.Kind)
	assert.Equal(t, "olive oil", res.Ingredient)
}

func TestResolveDishFromBareTokens(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("fajita", nil, nil))
	require.Equal(t, model.ResolutionDish, res.Kind)
}

func TestResolveDishWinsOverIngredient(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("fajita with tomato", []string{"fajita"}, []string{"tomato"}))
	require.Equal(t, model.ResolutionDish, res.Kind)
}

func TestResolveIngredientFallback(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("150 g rice", nil, []string{"rice"}))
	require.Equal(t, model.ResolutionIngredient, res.Kind)
	assert.Equal(t, "rice", res.Ingredient)
	assert.Equal(t, 100.0, res.Confidence)
}

func TestResolveUnresolved(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("biryani", []string{"biryani"}, nil))
	assert.Equal(t, model.ResolutionUnresolved, res.Kind)
}

func TestResolveCatalogErrorDegrades(t *testing.T) {
	catalog := &fakeCatalog{dishes: []model.Dish{fajitaDish()}, findErr: eris.New("db down")}
	r := NewResolver(catalog, synonym.New(nil), 70)

	res := r.Resolve(context.Background(), parsedQuery("fajita", []string{"fajita"}, []string{"tomato"}))
	require.Equal(t, model.ResolutionIngredient, res.Kind, "falls through to ingredient")
	assert.Equal(t, "tomato", res.Ingredient)
}
