package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AA-Fatima/599-cal/internal/cache"
	"github.com/AA-Fatima/599-cal/internal/nlp"
	"github.com/AA-Fatima/599-cal/internal/nutrition"
	"github.com/AA-Fatima/599-cal/internal/pipeline"
	"github.com/AA-Fatima/599-cal/internal/refstore"
	"github.com/AA-Fatima/599-cal/internal/suggest"
	"github.com/AA-Fatima/599-cal/internal/synonym"
	"github.com/AA-Fatima/599-cal/internal/units"
	anthropicpkg "github.com/AA-Fatima/599-cal/pkg/anthropic"
)

// pipelineEnv holds the store, cache, and wired pipeline needed by the
// query and serve commands.
type pipelineEnv struct {
	Store    refstore.Store
	Cache    cache.Cache
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Cache != nil {
		_ = pe.Cache.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the store, runs migrations, and builds the pipeline
// with its cache, lookup, NLP, and suggestion stages. Callers should
// defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	lookupCache, err := initCache(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	canon := synonym.New(st)
	convert := units.New(st)

	lookup := nutrition.New(st, lookupCache, nutrition.Options{
		SimilarityThreshold: cfg.Lookup.SimilarityThreshold,
		FuzzyRatioThreshold: cfg.Lookup.FuzzyRatioThreshold,
		StoreTimeout:        time.Duration(cfg.Lookup.StoreTimeoutSecs) * time.Second,
		CacheTTL:            time.Duration(cfg.Cache.TTLSecs) * time.Second,
	})

	var classifier nlp.Classifier = nlp.StaticClassifier{}
	if cfg.Intent.URL != "" {
		classifier = nlp.NewHTTPClassifier(cfg.Intent.URL, time.Duration(cfg.Intent.TimeoutSecs)*time.Second)
		zap.L().Info("intent service enabled", zap.String("url", cfg.Intent.URL))
	}

	var extractor nlp.Extractor = nlp.NewLexiconExtractor(st)
	if cfg.NER.URL != "" {
		extractor = nlp.NewHTTPExtractor(cfg.NER.URL, time.Duration(cfg.NER.TimeoutSecs)*time.Second)
		zap.L().Info("ner service enabled", zap.String("url", cfg.NER.URL))
	}

	var suggester suggest.Suggester = suggest.Disabled{}
	if cfg.Anthropic.Key != "" {
		suggester = suggest.NewClaude(anthropicpkg.NewClient(cfg.Anthropic.Key), suggest.Options{
			Model:             cfg.Anthropic.Model,
			MaxTokens:         int64(cfg.Anthropic.MaxTokens),
			RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		})
		zap.L().Info("ingredient suggestions enabled", zap.String("model", cfg.Anthropic.Model))
	}

	p := pipeline.New(classifier, extractor, canon, convert, st, st, lookup, suggester, pipeline.Options{
		DishThreshold:  cfg.Pipeline.DishFuzzyThreshold,
		DefaultWeightG: cfg.Pipeline.DefaultAddedWeightG,
	})

	if err := p.Warmup(ctx); err != nil {
		zap.L().Warn("pipeline warmup failed", zap.Error(err))
	}

	return &pipelineEnv{Store: st, Cache: lookupCache, Pipeline: p}, nil
}

func initStore(ctx context.Context) (refstore.Store, error) {
	return refstore.Open(ctx, refstore.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Path:        cfg.Store.Path,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
}

func initCache(ctx context.Context) (cache.Cache, error) {
	if cfg.Cache.Driver == "redis" {
		c, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return nil, eris.Wrap(err, "connect redis")
		}
		zap.L().Info("redis cache enabled", zap.String("addr", cfg.Cache.RedisAddr))
		return c, nil
	}
	return cache.NewMemory(time.Duration(cfg.Cache.CleanupIntervalSecs) * time.Second), nil
}
