// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wneessen/geonamer/internal/coord"
	"github.com/wneessen/geonamer/internal/observability"
)

const (
	// DefaultCacheSize is the number of coordinate keys kept when no size is configured
	DefaultCacheSize = 4096

	// SharedLookupTimeout bounds a lookup that callers share, including the rate limiter wait
	SharedLookupTimeout = 30 * time.Second
)

// CachedGeocoder memoizes successful reverse lookups keyed by the rounded coordinate.
// Failures are never cached, so a transient error is retried on the next call.
type CachedGeocoder struct {
	coder     Geocoder
	precision int
	metrics   *observability.Metrics

	cache    *lru.Cache[string, Address]
	inflight singleflight.Group
}

// NewCachedGeocoder wraps coder with a bounded LRU cache of size entries. precision is the
// number of decimals used to build the coordinate key.
func NewCachedGeocoder(coder Geocoder, size, precision int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if precision < 0 {
		precision = coord.DefaultPrecision
	}
	cache, err := lru.New[string, Address](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &CachedGeocoder{
		coder:     coder,
		precision: precision,
		metrics:   metrics,
		cache:     cache,
	}, nil
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

// Len returns the number of cached coordinate keys.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}

// Reverse returns the cached address for the coordinate key or asks the wrapped geocoder.
// Concurrent misses for the same key share one lookup.
func (c *CachedGeocoder) Reverse(ctx context.Context, coords coord.Coordinate) (Address, error) {
	key := coord.Key(coords, c.precision)
	if addr, ok := c.cache.Get(key); ok {
		c.metrics.CacheHit()
		addr.CacheHit = true
		return addr, nil
	}
	c.metrics.CacheMiss()

	// The shared lookup must outlive a caller that gives up, the others may still wait on it.
	results := c.inflight.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedLookupTimeout)
		defer cancel()
		addr, err := c.coder.Reverse(lookupCtx, coords)
		if err != nil {
			return addr, err
		}
		if addr.AddressFound && addr.DisplayName != "" {
			c.cache.Add(key, addr)
		}
		return addr, nil
	})

	select {
	case <-ctx.Done():
		return Address{}, ctx.Err()
	case res := <-results:
		addr, _ := res.Val.(Address)
		return addr, res.Err
	}
}
