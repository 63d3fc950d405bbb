// Package refstore persists the food reference data: the dish catalog,
// per-100g nutrition records, the synonym table, unit conversion rates,
// and the missing-query log. Two drivers exist: PostgreSQL (pg_trgm
// similarity search) and SQLite (single-file deployments, no similarity
// support — callers fall back to in-process matching).
package refstore

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/units"
)

// Catalog resolves dish names and recipes.
type Catalog interface {
	// FindDishByName returns the best-matching dish and a 0-100 match
	// score, or (nil, 0, nil) when nothing plausible matches. The dish is
	// returned without its recipe; use GetIngredients.
	FindDishByName(ctx context.Context, name string) (*model.Dish, float64, error)
	GetIngredients(ctx context.Context, dishID int64) ([]model.IngredientRef, error)
	ListDishNames(ctx context.Context) ([]string, error)
}

// Nutrition looks up per-100g reference records.
type Nutrition interface {
	FindNutritionByName(ctx context.Context, name string) (*model.NutritionRecord, error)
	// FindNutritionBySimilarity returns the most similar record with
	// similarity above threshold (0-1 scale), plus a 0-100 score. Only
	// meaningful when SupportsSimilarity reports true.
	FindNutritionBySimilarity(ctx context.Context, name string, threshold float64) (*model.NutritionRecord, float64, error)
	FindNutritionBySubstring(ctx context.Context, name string) (*model.NutritionRecord, error)
	FindNutritionByID(ctx context.Context, externalID int64) (*model.NutritionRecord, error)
	ListNutritionNames(ctx context.Context) ([]string, error)
	// SupportsSimilarity reports whether the driver can rank by trigram
	// similarity server-side.
	SupportsSimilarity() bool
}

// MissingLog records queries the pipeline could not resolve.
type MissingLog interface {
	RecordMissing(ctx context.Context, sessionID, query, reason string) error
	ListMissing(ctx context.Context, limit int) ([]model.MissingQuery, error)
}

// Seeder bulk-loads reference data. Seeding is idempotent where the data
// has a natural key (nutrition, synonyms, unit rates); dishes are
// replaced wholesale.
type Seeder interface {
	SeedDishes(ctx context.Context, dishes []model.Dish) error
	SeedNutrition(ctx context.Context, records []model.NutritionRecord) error
	SeedSynonyms(ctx context.Context, synonyms map[string]string) error
	SeedUnitRates(ctx context.Context, rates []units.Rate) error
}

// Store is the full persistence interface. It also satisfies
// synonym.Store and units.Store so the canonicalizer and converter can
// load their tables from the same backend.
type Store interface {
	Catalog
	Nutrition
	MissingLog
	Seeder

	LoadSynonyms(ctx context.Context) (map[string]string, error)
	LoadUnitRates(ctx context.Context) ([]units.Rate, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`

	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = "cal.db"
		}
		return NewSQLite(path)
	default:
		return nil, eris.Errorf("refstore: unknown driver %q", cfg.Driver)
	}
}
