// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package records

import (
	"strings"

	"github.com/wneessen/geonamer/internal/coord"
)

// Mode is the normalized transport mode of a search.
type Mode string

const (
	ModeBus    Mode = "bus"
	ModeSubway Mode = "subway"
	ModeTram   Mode = "tram"
	ModeTrain  Mode = "train"
	ModeBike   Mode = "bike"
	ModeWalk   Mode = "walk"
	ModeCar    Mode = "car"
	ModeOther  Mode = "other"

	// FilterAll and FilterEco are mode filters that select more than one mode.
	FilterAll = "all"
	FilterEco = "eco"
)

// ecoModes lists the modes that count as sustainable for the eco filter.
var ecoModes = map[Mode]struct{}{
	ModeBus:    {},
	ModeTrain:  {},
	ModeBike:   {},
	ModeWalk:   {},
	ModeSubway: {},
	ModeTram:   {},
}

// NormalizeMode maps the raw backend modes string, e.g. "WALK,BUS", to a single mode. The
// first matching mode in the order subway, tram, train, bike, bus, walk, car wins.
func NormalizeMode(raw string) Mode {
	m := strings.ToLower(raw)
	switch {
	case strings.Contains(m, "subway"), strings.Contains(m, "metro"):
		return ModeSubway
	case strings.Contains(m, "tram"):
		return ModeTram
	case strings.Contains(m, "train"):
		return ModeTrain
	case strings.Contains(m, "bicycle"), strings.Contains(m, "bike"):
		return ModeBike
	case strings.Contains(m, "bus"):
		return ModeBus
	case strings.Contains(m, "walk"):
		return ModeWalk
	case strings.Contains(m, "car"), strings.Contains(m, "auto"):
		return ModeCar
	default:
		return ModeOther
	}
}

// IsEcoMode reports whether the raw modes string normalizes to a sustainable mode.
func IsEcoMode(raw string) bool {
	_, ok := ecoModes[NormalizeMode(raw)]
	return ok
}

// ValidFilter reports whether filter is accepted by WithMode.
func ValidFilter(filter string) bool {
	switch Mode(strings.ToLower(filter)) {
	case "", FilterAll, FilterEco, ModeBus, ModeSubway, ModeTram, ModeTrain, ModeBike, ModeWalk, ModeCar,
		ModeOther:
		return true
	default:
		return false
	}
}

// MatchesQuery reports whether the search matches the free-text query. The query is
// matched case-insensitively against the origin and destination names, and against the
// coordinate labels when no name matches. An empty query matches everything.
func MatchesQuery(query string, search Search, from, to string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(from), q) || strings.Contains(strings.ToLower(to), q) {
		return true
	}
	return strings.Contains(coord.Fallback(search.Origin()), q) ||
		strings.Contains(coord.Fallback(search.Destination()), q)
}
