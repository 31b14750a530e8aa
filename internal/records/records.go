// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package records loads trip searches from a backend or a file and prepares them for name
// resolution.
package records

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wneessen/geonamer/internal/coord"
	"github.com/wneessen/geonamer/internal/resolver"
)

const (
	DefaultRecent = 6
	DefaultWindow = 30 * 24 * time.Hour
)

type SortMode string

const (
	SortRecent   SortMode = "recent"
	SortOldest   SortMode = "oldest"
	SortDistance SortMode = "distance"
)

// Search is a trip search as returned by the backend.
type Search struct {
	ID          int64     `json:"id"`
	FromLat     float64   `json:"from_lat"`
	FromLon     float64   `json:"from_lon"`
	ToLat       float64   `json:"to_lat"`
	ToLon       float64   `json:"to_lon"`
	TripDate    time.Time `json:"trip_date"`
	RequestedAt time.Time `json:"requested_at"`
	Modes       string    `json:"modes"`
}

// Key returns the record ID used by the resolver.
func (s Search) Key() string {
	return strconv.FormatInt(s.ID, 10)
}

func (s Search) Origin() coord.Coordinate {
	return coord.Coordinate{Lat: s.FromLat, Lon: s.FromLon}
}

func (s Search) Destination() coord.Coordinate {
	return coord.Coordinate{Lat: s.ToLat, Lon: s.ToLon}
}

// Distance returns the great-circle distance between origin and destination in meters.
func (s Search) Distance() float64 {
	return coord.Distance(s.Origin(), s.Destination())
}

// ParseSortMode returns the sort mode for the given name.
func ParseSortMode(mode string) (SortMode, error) {
	switch SortMode(strings.ToLower(mode)) {
	case "", SortRecent:
		return SortRecent, nil
	case SortOldest:
		return SortOldest, nil
	case SortDistance:
		return SortDistance, nil
	default:
		return "", fmt.Errorf("unsupported sort mode: %s", mode)
	}
}

// Valid drops searches whose origin or destination latitude is zero. The backend stores
// zero for searches without a located endpoint.
func Valid(searches []Search) []Search {
	return slices.DeleteFunc(slices.Clone(searches), func(s Search) bool {
		return s.FromLat == 0 || s.ToLat == 0
	})
}

// Within keeps the searches whose trip date lies in the window ending now.
func Within(clock clockwork.Clock, window time.Duration, searches []Search) []Search {
	if window <= 0 {
		return slices.Clone(searches)
	}
	end := clock.Now()
	start := end.Add(-window)
	return slices.DeleteFunc(slices.Clone(searches), func(s Search) bool {
		return s.TripDate.Before(start) || s.TripDate.After(end)
	})
}

// WithMode keeps the searches whose normalized mode matches filter. An empty filter or
// "all" keeps everything, "eco" keeps every sustainable mode.
func WithMode(filter string, searches []Search) []Search {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == FilterAll {
		return slices.Clone(searches)
	}
	return slices.DeleteFunc(slices.Clone(searches), func(s Search) bool {
		if filter == FilterEco {
			return !IsEcoMode(s.Modes)
		}
		return NormalizeMode(s.Modes) != Mode(filter)
	})
}

// Sort orders the searches in place. Distance sorting puts the longest trips first.
func Sort(mode SortMode, searches []Search) {
	switch mode {
	case SortOldest:
		slices.SortStableFunc(searches, func(a, b Search) int {
			return a.TripDate.Compare(b.TripDate)
		})
	case SortDistance:
		slices.SortStableFunc(searches, func(a, b Search) int {
			return cmp.Compare(b.Distance(), a.Distance())
		})
	default:
		slices.SortStableFunc(searches, func(a, b Search) int {
			return b.TripDate.Compare(a.TripDate)
		})
	}
}

// Recent returns the last n valid searches of the backend list, newest first.
func Recent(n int, searches []Search) []Search {
	valid := Valid(searches)
	if n > 0 && len(valid) > n {
		valid = valid[len(valid)-n:]
	}
	slices.Reverse(valid)
	return valid
}

// ToRecords converts searches into resolver records, keeping their order.
func ToRecords(searches []Search) []resolver.Record {
	out := make([]resolver.Record, len(searches))
	for i, s := range searches {
		out[i] = resolver.Record{
			ID:          s.Key(),
			Origin:      s.Origin(),
			Destination: s.Destination(),
		}
	}
	return out
}
