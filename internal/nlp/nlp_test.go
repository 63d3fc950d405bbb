package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AA-Fatima/599-cal/internal/resilience"
)

func TestHTTPClassifierPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how many calories in fajita", req["text"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"label": "calorie_query", "confidence": 0.97})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, 0)
	intent, err := c.Predict(context.Background(), "how many calories in fajita")
	require.NoError(t, err)
	assert.Equal(t, IntentCalorieQuery, intent.Label)
	assert.InDelta(t, 0.97, intent.Confidence, 1e-9)
}

func TestHTTPClassifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, 0)
	_, err := c.Predict(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "5xx is retryable")
}

func TestHTTPExtractorClientErrorNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, 0)
	_, err := e.Extract(context.Background(), "anything")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "4xx is the caller's fault")
}

func TestHTTPExtractorExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/extract", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"dishes":      []string{"fajita"},
			"ingredients": []string{"tomato"},
		})
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, 0)
	ents, err := e.Extract(context.Background(), "fajita with tomato")
	require.NoError(t, err)
	assert.Equal(t, []string{"fajita"}, ents.Dishes)
	assert.Equal(t, []string{"tomato"}, ents.Ingredients)
}

func TestStaticClassifier(t *testing.T) {
	intent, err := StaticClassifier{}.Predict(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, IntentCalorieQuery, intent.Label)
	assert.Equal(t, 1.0, intent.Confidence)
}

type fakeVocab struct {
	dishes      []string
	ingredients []string
}

func (f fakeVocab) ListDishNames(context.Context) ([]string, error)      { return f.dishes, nil }
func (f fakeVocab) ListNutritionNames(context.Context) ([]string, error) { return f.ingredients, nil }

func TestLexiconExtractor(t *testing.T) {
	e := NewLexiconExtractor(fakeVocab{
		dishes:      []string{"fajita", "tabbouleh"},
		ingredients: []string{"tomato", "olive oil", "chicken breast"},
	})

	ents, err := e.Extract(context.Background(), "Fajita without tomato please")
	require.NoError(t, err)
	assert.Equal(t, []string{"fajita"}, ents.Dishes)
	assert.Equal(t, []string{"tomato"}, ents.Ingredients)

	ents, err = e.Extract(context.Background(), "weather in beirut")
	require.NoError(t, err)
	assert.Empty(t, ents.Dishes)
	assert.Empty(t, ents.Ingredients)
}
