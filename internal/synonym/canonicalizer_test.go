package synonym

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	table map[string]string
	err   error
	calls atomic.Int32
}

func (f *fakeStore) LoadSynonyms(_ context.Context) (map[string]string, error) {
	f.calls.Add(1)
	return f.table, f.err
}

func TestCanonicalDefaults(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	assert.Equal(t, "fajita", c.Canonical(ctx, "فاهيتا"))
	assert.Equal(t, "fajita", c.Canonical(ctx, "Fahita"))
	assert.Equal(t, "tabbouleh", c.Canonical(ctx, "تبولة"))
	assert.Equal(t, "tomato", c.Canonical(ctx, "بندورة"))
	assert.Equal(t, "olive oil", c.Canonical(ctx, "زيت زيتون"))
}

func TestCanonicalIdentityFallback(t *testing.T) {
	c := New(nil)
	assert.Equal(t, "hummus", c.Canonical(context.Background(), "  Hummus "))
}

func TestCanonicalStoreOverridesAndCachesOnce(t *testing.T) {
	store := &fakeStore{table: map[string]string{"shawerma": "shawarma"}}
	c := New(store)
	ctx := context.Background()

	assert.Equal(t, "shawarma", c.Canonical(ctx, "Shawerma"))
	assert.Equal(t, "fajita", c.Canonical(ctx, "fahita"))
	c.Canonical(ctx, "anything")
	assert.Equal(t, int32(1), store.calls.Load(), "table loads once")

	c.Invalidate()
	c.Canonical(ctx, "anything")
	assert.Equal(t, int32(2), store.calls.Load(), "invalidate forces reload")
}

func TestCanonicalStoreErrorServesDefaults(t *testing.T) {
	store := &fakeStore{err: eris.New("connection refused")}
	c := New(store)

	assert.Equal(t, "fajita", c.Canonical(context.Background(), "فاهيتا"))
}

func TestApply(t *testing.T) {
	c := New(nil)
	got := c.Apply(context.Background(), []string{"فاهيتا", "دجاج", "plate"})
	assert.Equal(t, []string{"fajita", "chicken", "plate"}, got)
}
