package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "nutrition.ByName:tomato", Key("nutrition.ByName", "tomato"))
	assert.Equal(t, "units:olive oil:tbsp", Key("units", "olive oil", "tbsp"))
	assert.Equal(t, "warm", Key("warm"))
}

func TestMemoryGetSetExpiry(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	time.Sleep(60 * time.Millisecond)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, m.Delete(ctx, "k"))
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

type flakyCache struct {
	*Memory
	getErr error
}

func (f *flakyCache) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Memory.Get(ctx, key)
}

func TestGetOrCompute(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	got, err := GetOrCompute(ctx, m, "answer", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = GetOrCompute(ctx, m, "answer", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls, "second call served from cache")
}

func TestGetOrComputeDegradesOnCacheError(t *testing.T) {
	f := &flakyCache{Memory: NewMemory(0), getErr: eris.New("socket closed")}
	defer f.Close()

	got, err := GetOrCompute(context.Background(), f, "k", time.Minute, func(context.Context) (string, error) {
		return "computed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "computed", got)
}

func TestGetOrComputeNilCache(t *testing.T) {
	got, err := GetOrCompute(context.Background(), nil, "k", time.Minute, func(context.Context) (string, error) {
		return "direct", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", got)
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()

	_, err := GetOrCompute(context.Background(), m, "k", time.Minute, func(context.Context) (int, error) {
		return 0, eris.New("upstream down")
	})
	assert.Error(t, err)
	_, gerr := m.Get(context.Background(), "k")
	assert.ErrorIs(t, gerr, ErrMiss, "failed compute is not cached")
}
