// Package model defines the data types that flow through the calorie
// resolution pipeline. All per-request values are created fresh per call;
// only Dish, IngredientRef and NutritionRecord describe long-lived
// reference data owned by the reference store.
package model

import "time"

// Quantity is a single extracted amount/unit pair, in order of appearance.
type Quantity struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// ParsedQuery is the immutable result of text analysis for one query.
type ParsedQuery struct {
	Raw             string     `json:"raw"`
	Normalized      string     `json:"normalized"`
	Tokens          []string   `json:"tokens"`
	Quantities      []Quantity `json:"quantities"`
	DishNames       []string   `json:"dish_names"`
	IngredientNames []string   `json:"ingredient_names"`
}

// ResolutionKind tags the active variant of a Resolution.
type ResolutionKind int

const (
	ResolutionUnresolved ResolutionKind = iota
	ResolutionDish
	ResolutionIngredient
)

// Resolution is the tagged outcome of candidate resolution. Exactly one
// variant is active: Dish when Kind == ResolutionDish, Ingredient when
// Kind == ResolutionIngredient, neither otherwise. Confidence is a 0-100
// match score (100 for an exact match).
type Resolution struct {
	Kind       ResolutionKind
	Dish       *Dish
	Ingredient string
	Confidence float64
}

// ResolvedDish builds the dish variant.
func ResolvedDish(d *Dish, confidence float64) Resolution {
	return Resolution{Kind: ResolutionDish, Dish: d, Confidence: confidence}
}

// ResolvedIngredient builds the single-ingredient variant.
func ResolvedIngredient(name string, confidence float64) Resolution {
	return Resolution{Kind: ResolutionIngredient, Ingredient: name, Confidence: confidence}
}

// Unresolved builds the empty variant.
func Unresolved() Resolution {
	return Resolution{Kind: ResolutionUnresolved}
}

// Dish is immutable reference data owned by the catalog.
type Dish struct {
	ID          int64           `json:"dish_id"`
	Name        string          `json:"dish_name"`
	Country     string          `json:"country,omitempty"`
	Ingredients []IngredientRef `json:"ingredients,omitempty"`
}

// IngredientRef is one entry of a dish recipe. ExternalID, when set, is the
// stable key into the nutrition reference store and is preferred over name
// lookup.
type IngredientRef struct {
	Name           string  `json:"name"`
	ExternalID     *int64  `json:"external_id,omitempty"`
	DefaultWeightG float64 `json:"default_weight_g"`
}

// IngredientLine is one computed row of a nutrition result. Added marks
// ingredients introduced by a modification rather than the base recipe.
type IngredientLine struct {
	Name     string  `json:"name"`
	WeightG  float64 `json:"weight_g"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
	Added    bool    `json:"added,omitempty"`
}

// ModificationSet holds the user-requested recipe edits. Order within each
// list is irrelevant; application order (remove before add) is fixed.
type ModificationSet struct {
	Remove []string `json:"remove,omitempty"`
	Add    []string `json:"add,omitempty"`
}

// Empty reports whether the set carries no edits.
func (m ModificationSet) Empty() bool {
	return len(m.Remove) == 0 && len(m.Add) == 0
}

// NutritionRecord holds per-100g reference values. Calories is required;
// a record without calories is not ingestible. Macros are optional.
type NutritionRecord struct {
	ExternalID int64    `json:"external_id"`
	Name       string   `json:"name"`
	Calories   float64  `json:"per_100g_calories"`
	ProteinG   *float64 `json:"per_100g_protein,omitempty"`
	FatG       *float64 `json:"per_100g_fat,omitempty"`
	CarbsG     *float64 `json:"per_100g_carbs,omitempty"`
}

// Totals holds the independently summed result columns.
type Totals struct {
	WeightG  float64 `json:"weight_g"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// NutritionResult is the computed answer for a resolved query.
type NutritionResult struct {
	Label       string           `json:"dish"`
	Ingredients []IngredientLine `json:"ingredients"`
	Totals      Totals           `json:"totals"`
	Notes       []string         `json:"notes"`
}

// ClarificationRequest asks the user for more information instead of a
// computed result. SuggestedIngredients may carry AI-proposed ingredient
// names for a dish the catalog does not know.
type ClarificationRequest struct {
	Message              string   `json:"message"`
	SuggestedIngredients []string `json:"suggested_ingredients,omitempty"`
}

// Outcome is the tagged response of the pipeline entry point: exactly one
// of Result or Clarification is set.
type Outcome struct {
	Result        *NutritionResult      `json:"result,omitempty"`
	Clarification *ClarificationRequest `json:"clarification,omitempty"`
}

// NeedsClarification reports whether the outcome is a clarification.
func (o Outcome) NeedsClarification() bool {
	return o.Clarification != nil
}

// MissingQuery is one recorded unresolved query, kept for curators to
// review and promote into the catalog.
type MissingQuery struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Query     string    `json:"query"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
