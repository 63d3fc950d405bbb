// Package nlp fronts the external model servers: an intent classifier
// that gates non-food queries, and an entity extractor that tags dish and
// ingredient mentions. Both have local fallbacks so the pipeline keeps
// answering when the model servers are down.
package nlp

import "context"

// IntentCalorieQuery is the only intent the pipeline acts on; anything
// else is answered with a clarification.
const IntentCalorieQuery = "calorie_query"

// Intent is one classification outcome.
type Intent struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels a raw query with an intent.
type Classifier interface {
	Predict(ctx context.Context, text string) (Intent, error)
}

// Entities holds the dish and ingredient mentions found in a query.
type Entities struct {
	Dishes      []string `json:"dishes"`
	Ingredients []string `json:"ingredients"`
}

// Extractor finds food entities in a raw query.
type Extractor interface {
	Extract(ctx context.Context, text string) (Entities, error)
}
