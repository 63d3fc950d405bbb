// Package nutrition resolves ingredient names to per-100g reference
// records through a tiered cascade: exact match, server-side trigram
// similarity, in-process fuzzy ratio, then substring. Every tier degrades
// on error so an unhealthy store or cache yields "not found" rather than
// a failed query.
package nutrition

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/AA-Fatima/599-cal/internal/cache"
	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/textutil"
)

// Store is the record source the cascade runs against. refstore.Store
// satisfies it.
type Store interface {
	FindNutritionByName(ctx context.Context, name string) (*model.NutritionRecord, error)
	FindNutritionBySimilarity(ctx context.Context, name string, threshold float64) (*model.NutritionRecord, float64, error)
	FindNutritionBySubstring(ctx context.Context, name string) (*model.NutritionRecord, error)
	FindNutritionByID(ctx context.Context, externalID int64) (*model.NutritionRecord, error)
	ListNutritionNames(ctx context.Context) ([]string, error)
	SupportsSimilarity() bool
}

// Options tunes the cascade thresholds and store budget.
type Options struct {
	// SimilarityThreshold is the pg_trgm floor (0-1 scale).
	SimilarityThreshold float64
	// FuzzyRatioThreshold is the minimum 0-100 fuzzy ratio for the
	// in-process tier.
	FuzzyRatioThreshold float64
	// StoreTimeout bounds each individual store call.
	StoreTimeout time.Duration
	// CacheTTL bounds how long lookups (hits and misses both) are reused.
	CacheTTL time.Duration
}

func (o *Options) fill() {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.3
	}
	if o.FuzzyRatioThreshold <= 0 {
		o.FuzzyRatioThreshold = 70
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 2 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
}

// Lookup runs the cascade with caching. Safe for concurrent use.
type Lookup struct {
	store Store
	cache cache.Cache
	opts  Options
}

// New creates a Lookup. cache may be nil to disable caching.
func New(store Store, c cache.Cache, opts Options) *Lookup {
	opts.fill()
	return &Lookup{store: store, cache: c, opts: opts}
}

// cachedRecord is the cache envelope. Found distinguishes a cached miss
// from an absent cache entry so misses are not recomputed every call.
type cachedRecord struct {
	Found  bool                   `json:"found"`
	Record *model.NutritionRecord `json:"record,omitempty"`
}

// ByName resolves name through the cascade, returning (nil, nil) when no
// tier matches. The result, including a definitive miss, is cached.
func (l *Lookup) ByName(ctx context.Context, name string) (*model.NutritionRecord, error) {
	key := cache.Key("nutrition.ByName", textutil.NormalizeKey(name))
	env, err := cache.GetOrCompute(ctx, l.cache, key, l.opts.CacheTTL, func(ctx context.Context) (cachedRecord, error) {
		rec := l.cascade(ctx, name)
		return cachedRecord{Found: rec != nil, Record: rec}, nil
	})
	if err != nil {
		return nil, err
	}
	return env.Record, nil
}

// ByID resolves a record by its stable external key.
func (l *Lookup) ByID(ctx context.Context, externalID int64) (*model.NutritionRecord, error) {
	key := cache.Key("nutrition.ByID", strconv.FormatInt(externalID, 10))
	env, err := cache.GetOrCompute(ctx, l.cache, key, l.opts.CacheTTL, func(ctx context.Context) (cachedRecord, error) {
		storeCtx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
		defer cancel()
		rec, err := l.store.FindNutritionByID(storeCtx, externalID)
		if err != nil {
			zap.L().Warn("nutrition: by-id lookup failed", zap.Int64("external_id", externalID), zap.Error(err))
			rec = nil
		}
		return cachedRecord{Found: rec != nil, Record: rec}, nil
	})
	if err != nil {
		return nil, err
	}
	return env.Record, nil
}

func (l *Lookup) cascade(ctx context.Context, name string) *model.NutritionRecord {
	log := zap.L().With(zap.String("ingredient", name))

	if rec := l.tryExact(ctx, name, log); rec != nil {
		return rec
	}
	if l.store.SupportsSimilarity() {
		if rec := l.trySimilarity(ctx, name, log); rec != nil {
			return rec
		}
	}
	if rec := l.tryFuzzy(ctx, name, log); rec != nil {
		return rec
	}
	return l.trySubstring(ctx, name, log)
}

func (l *Lookup) tryExact(ctx context.Context, name string, log *zap.Logger) *model.NutritionRecord {
	storeCtx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()
	rec, err := l.store.FindNutritionByName(storeCtx, name)
	if err != nil {
		log.Warn("nutrition: exact tier failed", zap.Error(err))
		return nil
	}
	return rec
}

func (l *Lookup) trySimilarity(ctx context.Context, name string, log *zap.Logger) *model.NutritionRecord {
	storeCtx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()
	rec, score, err := l.store.FindNutritionBySimilarity(storeCtx, name, l.opts.SimilarityThreshold)
	if err != nil {
		log.Warn("nutrition: similarity tier failed", zap.Error(err))
		return nil
	}
	if rec != nil {
		log.Debug("nutrition: similarity match", zap.String("matched", rec.Name), zap.Float64("score", score))
	}
	return rec
}

// tryFuzzy ranks the full name list by fuzzy ratio in-process. The list
// is cached so the scan costs one store round-trip per TTL window.
func (l *Lookup) tryFuzzy(ctx context.Context, name string, log *zap.Logger) *model.NutritionRecord {
	names, err := cache.GetOrCompute(ctx, l.cache, cache.Key("nutrition.names"), l.opts.CacheTTL,
		func(ctx context.Context) ([]string, error) {
			storeCtx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
			defer cancel()
			return l.store.ListNutritionNames(storeCtx)
		})
	if err != nil {
		log.Warn("nutrition: fuzzy tier failed", zap.Error(err))
		return nil
	}

	best, score := textutil.BestMatch(name, names)
	if best == "" || score < l.opts.FuzzyRatioThreshold {
		return nil
	}
	log.Debug("nutrition: fuzzy match", zap.String("matched", best), zap.Float64("score", score))
	return l.tryExact(ctx, best, log)
}

func (l *Lookup) trySubstring(ctx context.Context, name string, log *zap.Logger) *model.NutritionRecord {
	storeCtx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()
	rec, err := l.store.FindNutritionBySubstring(storeCtx, name)
	if err != nil {
		log.Warn("nutrition: substring tier failed", zap.Error(err))
		return nil
	}
	return rec
}
