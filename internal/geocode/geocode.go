// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/wneessen/geonamer/internal/coord"
)

// ErrNoResult is returned by providers when the API answered but knows no place for the
// requested coordinates.
var ErrNoResult = errors.New("no place found for coordinates")

type Address struct {
	AddressFound bool
	CacheHit     bool
	Latitude     float64
	Longitude    float64
	DisplayName  string
	Name         string
	Country      string
	State        string
	Municipality string
	CityDistrict string
	Postcode     string
	City         string
	Suburb       string
	Street       string
	HouseNumber  string
}

// Geocoder is the reverse geocoding collaborator. Implementations do not retry; any error
// means the coordinate stays unresolved for this attempt.
type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coords coord.Coordinate) (Address, error)
}

// ShortName reduces a display name to its first two comma-separated parts, e.g.
// "Piazza del Ferrarese, Bari Vecchia".
func ShortName(displayName string) string {
	parts := strings.Split(displayName, ",")
	if len(parts) < 2 {
		return strings.TrimSpace(displayName)
	}
	return strings.TrimSpace(parts[0]) + ", " + strings.TrimSpace(parts[1])
}
