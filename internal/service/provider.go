// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/wneessen/geonamer/internal/config"
	"github.com/wneessen/geonamer/internal/geocode"
	geocodeearth "github.com/wneessen/geonamer/internal/geocode/provider/geocode-earth"
	"github.com/wneessen/geonamer/internal/geocode/provider/opencage"
	nominatim "github.com/wneessen/geonamer/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/geonamer/internal/http"
	"github.com/wneessen/geonamer/internal/observability"
)

// rateLimitBurst allows a single request ahead of the rate, as required by the Nominatim
// usage policy.
const rateLimitBurst = 1

// selectGeocodeProvider stacks the configured provider behind the rate limiter and the
// coordinate cache.
func selectGeocodeProvider(conf *config.Config, client *http.Client, lang language.Tag,
	metrics *observability.Metrics,
) (geocode.Geocoder, error) {
	var provider geocode.Geocoder

	switch strings.ToLower(conf.GeoCoder.Provider) {
	case "nominatim":
		provider = nominatim.New(client, lang,
			nominatim.WithEndpoint(conf.GeoCoder.Endpoint),
			nominatim.WithTimeout(conf.GeoCoder.Timeout),
			nominatim.WithShortNames(conf.GeoCoder.ShortNames),
		)
	case "opencage":
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("opencage geocoder requires an API key")
		}
		provider = opencage.New(client, lang, conf.GeoCoder.APIKey,
			opencage.WithEndpoint(conf.GeoCoder.Endpoint),
			opencage.WithTimeout(conf.GeoCoder.Timeout),
			opencage.WithShortNames(conf.GeoCoder.ShortNames),
		)
	case "geocode-earth":
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("geocode-earth geocoder requires an API key")
		}
		provider = geocodeearth.New(client, lang, conf.GeoCoder.APIKey,
			geocodeearth.WithEndpoint(conf.GeoCoder.Endpoint),
			geocodeearth.WithTimeout(conf.GeoCoder.Timeout),
			geocodeearth.WithShortNames(conf.GeoCoder.ShortNames),
		)
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", conf.GeoCoder.Provider)
	}

	limited := geocode.NewRateLimitedGeocoder(provider, conf.GeoCoder.RateLimit, rateLimitBurst, metrics)
	cached, err := geocode.NewCachedGeocoder(limited, conf.Resolver.CacheSize, conf.Resolver.Precision, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinate cache: %w", err)
	}
	return cached, nil
}
