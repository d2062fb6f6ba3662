package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ttlCache holds one value for a fixed duration. Concurrent misses share a
// single load; a caller whose context ends stops waiting without cancelling
// the shared load.
type ttlCache[T any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	value   T
	expires time.Time
	loaded  bool
}

func newTTLCache[T any](ttl time.Duration, now func() time.Time) *ttlCache[T] {
	if now == nil {
		now = time.Now
	}
	return &ttlCache[T]{ttl: ttl, now: now}
}

func (c *ttlCache[T]) get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	c.mu.RLock()
	if c.loaded && c.now().Before(c.expires) {
		value := c.value
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()

	ch := c.group.DoChan("load", func() (any, error) {
		value, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return value, err
		}
		c.mu.Lock()
		c.value = value
		c.expires = c.now().Add(c.ttl)
		c.loaded = true
		c.mu.Unlock()
		return value, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
