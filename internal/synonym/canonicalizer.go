// Package synonym maps free-text food terms to canonical English names
// across script variants (Arabic script, transliterations, English
// spellings). The table is populated once from the reference store, frozen
// for the process lifetime, and only reloaded through an explicit
// Invalidate call.
package synonym

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AA-Fatima/599-cal/internal/textutil"
)

// Store loads the synonym vocabulary from the backing reference data.
type Store interface {
	LoadSynonyms(ctx context.Context) (map[string]string, error)
}

// defaults seeds the table so canonicalization works before the store is
// populated (and when it is unreachable).
var defaults = map[string]string{
	"فاهيتا":      "fajita",
	"فهيتا":       "fajita",
	"fahita":      "fajita",
	"faheta":      "fajita",
	"fjita":       "fajita",
	"تبولة":       "tabbouleh",
	"تبوله":       "tabbouleh",
	"tabbouli":    "tabbouleh",
	"taboule":     "tabbouleh",
	"taboula":     "tabbouleh",
	"بطاطا":       "fries",
	"بطاطا مقلية": "fries",
	"batata":      "fries",
	"بندورة":      "tomato",
	"طماطم":       "tomato",
	"زيت زيتون":   "olive oil",
	"رز":          "rice",
	"ارز":         "rice",
	"دجاج":        "chicken",
	"خبز":         "bread",
}

// Canonicalizer resolves terms against a populate-once table. Safe for
// concurrent readers once populated; Invalidate is the only mutation path.
type Canonicalizer struct {
	store Store

	mu     sync.RWMutex
	table  map[string]string
	loaded bool

	group singleflight.Group
}

// New creates a Canonicalizer backed by store. A nil store serves the
// built-in defaults only.
func New(store Store) *Canonicalizer {
	return &Canonicalizer{store: store}
}

// Canonical returns the canonical form of term, or the term itself
// (normalized) when no mapping exists. It never fails: a store error falls
// back to the built-in defaults.
func (c *Canonicalizer) Canonical(ctx context.Context, term string) string {
	key := textutil.NormalizeKey(term)
	table := c.tableFor(ctx)
	if canon, ok := table[key]; ok {
		return canon
	}
	return key
}

// Apply canonicalizes every token in order.
func (c *Canonicalizer) Apply(ctx context.Context, tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = c.Canonical(ctx, t)
	}
	return out
}

// Invalidate discards the cached table; the next lookup reloads from the
// store. Call after the backing vocabulary changes — there is no automatic
// refresh.
func (c *Canonicalizer) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.loaded = false
	c.mu.Unlock()
}

// Warm populates the table eagerly so the first query does not pay the
// load cost.
func (c *Canonicalizer) Warm(ctx context.Context) {
	c.tableFor(ctx)
}

func (c *Canonicalizer) tableFor(ctx context.Context) map[string]string {
	c.mu.RLock()
	if c.loaded {
		table := c.table
		c.mu.RUnlock()
		return table
	}
	c.mu.RUnlock()

	loaded, _, _ := c.group.Do("load", func() (any, error) {
		table := make(map[string]string, len(defaults))
		for term, canon := range defaults {
			table[textutil.NormalizeKey(term)] = textutil.NormalizeKey(canon)
		}
		if c.store != nil {
			stored, err := c.store.LoadSynonyms(ctx)
			if err != nil {
				zap.L().Warn("synonym: store load failed, serving defaults", zap.Error(err))
			}
			for term, canon := range stored {
				table[textutil.NormalizeKey(term)] = textutil.NormalizeKey(canon)
			}
		}
		c.mu.Lock()
		c.table = table
		c.loaded = true
		c.mu.Unlock()
		return table, nil
	})
	return loaded.(map[string]string)
}
