// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/wneessen/geonamer/internal/coord"
	"github.com/wneessen/geonamer/internal/observability"
)

// RateLimitedGeocoder spaces out calls to a geocoder that enforces a request quota, e.g.
// the public Nominatim instance with its one request per second policy. It also records
// the outcome of every call that reaches the provider.
type RateLimitedGeocoder struct {
	coder   Geocoder
	limiter *rate.Limiter
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewRateLimitedGeocoder returns a geocoder allowing rps requests per second with the
// given burst. A non-positive rps disables limiting.
func NewRateLimitedGeocoder(coder Geocoder, rps float64, burst int, metrics *observability.Metrics) *RateLimitedGeocoder {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedGeocoder{
		coder:   coder,
		limiter: rate.NewLimiter(limit, burst),
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
	}
}

func (r *RateLimitedGeocoder) Name() string {
	return "rate limited " + r.coder.Name()
}

func (r *RateLimitedGeocoder) Reverse(ctx context.Context, coords coord.Coordinate) (Address, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Address{}, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	start := r.clock.Now()
	addr, err := r.coder.Reverse(ctx, coords)
	took := r.clock.Since(start)
	switch {
	case err != nil:
		r.metrics.GeocodeRequest("error", took)
	case !addr.AddressFound:
		r.metrics.GeocodeRequest("empty", took)
	default:
		r.metrics.GeocodeRequest("success", took)
	}
	return addr, err
}
