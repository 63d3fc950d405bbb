// Package units converts parsed quantities into grams. Conversion rates
// come from the reference store with built-in defaults, keyed by
// (item, unit) with a generic per-unit fallback when no item-specific
// rate exists.
package units

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/textutil"
)

// GenericItem is the rate-table item key for rates that apply to any food.
const GenericItem = "generic"

// Rate is one conversion row: one unit of Unit for Item weighs Grams.
type Rate struct {
	Item  string
	Unit  string
	Grams float64
}

// Store loads conversion rates from the backing reference data.
type Store interface {
	LoadUnitRates(ctx context.Context) ([]Rate, error)
}

var defaultRates = []Rate{
	{GenericItem, "g", 1},
	{GenericItem, "kg", 1000},
	{GenericItem, "tbsp", 15},
	{GenericItem, "tsp", 5},
	{GenericItem, "cup", 240},
	{GenericItem, "piece", 50},
	{GenericItem, "حبة", 50},
	{"olive oil", "tbsp", 13.5},
	{"olive oil", "tsp", 4.5},
	{"tomato", "piece", 123},
	{"tomato", "حبة", 123},
	{"apple", "large", 223},
	{"apple", "medium", 182},
	{"apple", "small", 150},
}

type rateKey struct {
	item string
	unit string
}

// Converter resolves quantities to grams against a populate-once rate
// table. Safe for concurrent use.
type Converter struct {
	store Store

	mu     sync.RWMutex
	rates  map[rateKey]float64
	loaded bool

	group singleflight.Group
}

// New creates a Converter backed by store. A nil store serves the built-in
// defaults only.
func New(store Store) *Converter {
	return &Converter{store: store}
}

// ToGrams converts qty for the named item. Resolution order: an
// item-specific rate, then the generic rate for the unit, then the amount
// unchanged when the unit is unknown (treated as grams). The second return
// reports whether a rate matched.
func (c *Converter) ToGrams(ctx context.Context, item string, qty model.Quantity) (float64, bool) {
	rates := c.ratesFor(ctx)
	itemKey := textutil.NormalizeKey(item)
	unitKey := textutil.NormalizeKey(qty.Unit)

	if g, ok := rates[rateKey{itemKey, unitKey}]; ok {
		return qty.Amount * g, true
	}
	if g, ok := rates[rateKey{GenericItem, unitKey}]; ok {
		return qty.Amount * g, true
	}
	return qty.Amount, false
}

// Invalidate discards the cached rate table; the next conversion reloads
// from the store.
func (c *Converter) Invalidate() {
	c.mu.Lock()
	c.rates = nil
	c.loaded = false
	c.mu.Unlock()
}

// Warm populates the rate table eagerly.
func (c *Converter) Warm(ctx context.Context) {
	c.ratesFor(ctx)
}

func (c *Converter) ratesFor(ctx context.Context) map[rateKey]float64 {
	c.mu.RLock()
	if c.loaded {
		rates := c.rates
		c.mu.RUnlock()
		return rates
	}
	c.mu.RUnlock()

	loaded, _, _ := c.group.Do("load", func() (any, error) {
		rates := make(map[rateKey]float64, len(defaultRates))
		add := func(rs []Rate) {
			for _, r := range rs {
				key := rateKey{textutil.NormalizeKey(r.Item), textutil.NormalizeKey(r.Unit)}
				rates[key] = r.Grams
			}
		}
		add(defaultRates)
		if c.store != nil {
			stored, err := c.store.LoadUnitRates(ctx)
			if err != nil {
				zap.L().Warn("units: store load failed, serving defaults", zap.Error(err))
			}
			add(stored)
		}
		c.mu.Lock()
		c.rates = rates
		c.loaded = true
		c.mu.Unlock()
		return rates, nil
	})
	return loaded.(map[rateKey]float64)
}
