// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

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
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	APITimeout  = time.Second * 10
	name        = "opencage"
)

type OpenCage struct {
	apikey   string
	http     *http.Client
	lang     language.Tag
	endpoint string
	timeout  time.Duration
	short    bool
}

// Option configures optional OpenCage settings.
type Option func(*OpenCage)

type Response struct {
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

type Result struct {
	Components  Components `json:"components"`
	DisplayName string     `json:"formatted"`
	Geometry    Geometry   `json:"geometry"`
}

type Components struct {
	NormalizedCity string `json:"_normalized_city"`
	City           string `json:"city"`
	CityDistrict   string `json:"city_district"`
	Country        string `json:"country"`
	HouseNumber    string `json:"house_number"`
	Municipality   string `json:"municipality"`
	Postcode       string `json:"postcode"`
	Road           string `json:"road"`
	State          string `json:"state"`
	Suburb         string `json:"suburb"`
	Town           string `json:"town"`
	Village        string `json:"village"`
}

type Geometry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func WithEndpoint(endpoint string) Option {
	return func(o *OpenCage) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *OpenCage) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithShortNames reduces the formatted address to its first two parts.
func WithShortNames(short bool) Option {
	return func(o *OpenCage) {
		o.short = short
	}
}

func New(client *http.Client, lang language.Tag, apikey string, opts ...Option) *OpenCage {
	o := &OpenCage{
		apikey:   apikey,
		lang:     lang,
		http:     client,
		endpoint: APIEndpoint,
		timeout:  APITimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenCage) Name() string {
	return name
}

func (o *OpenCage) Reverse(ctx context.Context, coords coord.Coordinate) (geocode.Address, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("language", o.lang.String())

	if _, err := o.http.GetWithTimeout(ctx, o.endpoint, &response, query, nil, o.timeout); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from OpenCage API: %w", err)
	}
	if response.TotalResults == 0 || len(response.Results) == 0 {
		return geocode.Address{}, fmt.Errorf("%w: %s", geocode.ErrNoResult, coord.Fallback(coords))
	}
	if response.TotalResults > 1 {
		return geocode.Address{}, fmt.Errorf("ambiguous amount of results returned for coordinates: %d",
			response.TotalResults)
	}

	// Fill the geocode.Address struct
	result := response.Results[0].Components
	address := geocode.Address{
		AddressFound: true,
		Latitude:     response.Results[0].Geometry.Lat,
		Longitude:    response.Results[0].Geometry.Lon,
		DisplayName:  response.Results[0].DisplayName,
		Country:      result.Country,
		State:        result.State,
		Municipality: result.Municipality,
		CityDistrict: result.CityDistrict,
		Postcode:     result.Postcode,
		City:         result.NormalizedCity,
		Suburb:       result.Suburb,
		Street:       result.Road,
		HouseNumber:  result.HouseNumber,
	}
	if address.City == "" {
		address.City = result.City
	}
	if result.Town != "" {
		address.City = result.Town
	}
	if result.Village != "" {
		address.City = result.Village
	}
	if address.DisplayName == "" {
		return geocode.Address{}, fmt.Errorf("%w: %s", geocode.ErrNoResult, coord.Fallback(coords))
	}
	if o.short {
		address.DisplayName = geocode.ShortName(address.DisplayName)
	}

	return address, nil
}
