// Package cache provides a small cache-aside layer over Redis or an
// in-process TTL map. Values are stored as JSON; cache failures degrade to
// a miss so callers never fail because the cache is down.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is the minimal surface the pipeline needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key builds a cache key from a function identity and its arguments,
// joined with ":". Arguments are included in call order so distinct
// argument lists never collide.
func Key(fn string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, fn)
	parts = append(parts, args...)
	return strings.Join(parts, ":")
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a miss. Cache errors are logged and treated as misses; a compute
// error is returned without touching the cache.
func GetOrCompute[T any](ctx context.Context, c Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c != nil {
		raw, err := c.Get(ctx, key)
		switch {
		case err == nil:
			var v T
			if uerr := json.Unmarshal(raw, &v); uerr == nil {
				return v, nil
			}
			// stale encoding: fall through to recompute
			zap.L().Debug("cache: undecodable entry, recomputing", zap.String("key", key))
		case !errors.Is(err, ErrMiss):
			zap.L().Warn("cache: get failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return zero, err
	}
	if c != nil {
		raw, merr := json.Marshal(v)
		if merr != nil {
			return v, nil
		}
		if serr := c.Set(ctx, key, raw, ttl); serr != nil {
			zap.L().Warn("cache: set failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return v, nil
}

func wrapf(err error, msg string) error {
	if err == nil {
		return nil
	}
	return eris.Wrap(err, msg)
}
