// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocodeearth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/geonamer/internal/coord"
	"github.com/wneessen/geonamer/internal/geocode"
	"github.com/wneessen/geonamer/internal/http"
)

const (
	APIEndpoint = "https://api.geocode.earth/v1/reverse"
	APITimeout  = time.Second * 10
	name        = "geocode-earth"
)

type GeocodeEarth struct {
	apikey   string
	http     *http.Client
	lang     language.Tag
	endpoint string
	timeout  time.Duration
	short    bool
}

// Option configures optional geocode.earth settings.
type Option func(*GeocodeEarth)

type Response struct {
	Features []Feature `json:"features"`
	Type     string    `json:"type"`
}

type Feature struct {
	Properties Properties `json:"properties"`
	Type       string     `json:"type"`
}

type Properties struct {
	DisplayName  string `json:"label"`
	Name         string `json:"name"`
	City         string `json:"locality"`
	CityDistrict string `json:"county"`
	Country      string `json:"country"`
	HouseNumber  string `json:"housenumber"`
	Municipality string `json:"neighbourhood"`
	Postcode     string `json:"postalcode"`
	Road         string `json:"street"`
	State        string `json:"region"`
}

func WithEndpoint(endpoint string) Option {
	return func(g *GeocodeEarth) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(g *GeocodeEarth) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithShortNames reduces the label to its first two parts.
func WithShortNames(short bool) Option {
	return func(g *GeocodeEarth) {
		g.short = short
	}
}

func New(client *http.Client, lang language.Tag, apikey string, opts ...Option) *GeocodeEarth {
	g := &GeocodeEarth{
		apikey:   apikey,
		lang:     lang,
		http:     client,
		endpoint: APIEndpoint,
		timeout:  APITimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GeocodeEarth) Name() string {
	return name
}

func (g *GeocodeEarth) Reverse(ctx context.Context, coords coord.Coordinate) (geocode.Address, error) {
	var response Response

	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("point.lat", fmt.Sprintf("%f", coords.Lat))
	query.Set("point.lon", fmt.Sprintf("%f", coords.Lon))
	query.Set("lang", g.lang.String())
	query.Set("size", "1")

	if _, err := g.http.GetWithTimeout(ctx, g.endpoint, &response, query, nil, g.timeout); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from geocode.earth API: %w", err)
	}
	if len(response.Features) < 1 || response.Features[0].Properties.DisplayName == "" {
		return geocode.Address{}, fmt.Errorf("%w: %s", geocode.ErrNoResult, coord.Fallback(coords))
	}

	// Fill the geocode.Address struct
	result := response.Features[0].Properties
	address := geocode.Address{
		AddressFound: true,
		Latitude:     coords.Lat,
		Longitude:    coords.Lon,
		DisplayName:  result.DisplayName,
		Name:         result.Name,
		Country:      result.Country,
		State:        result.State,
		Municipality: result.Municipality,
		CityDistrict: result.CityDistrict,
		Postcode:     result.Postcode,
		City:         result.City,
		Street:       result.Road,
		HouseNumber:  result.HouseNumber,
	}
	if g.short {
		address.DisplayName = geocode.ShortName(address.DisplayName)
	}

	return address, nil
}
