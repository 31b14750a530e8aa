// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolver

import (
	"github.com/wneessen/geonamer/internal/coord"
)

// Record is a trip or search whose endpoints need place names. Records are read-only to
// the resolver.
type Record struct {
	ID          string
	Origin      coord.Coordinate
	Destination coord.Coordinate
}

// Names holds the display names of both endpoints of a record. A side flagged as fallback
// carries a coordinate label or the unknown-location label instead of a place name.
type Names struct {
	Origin              string
	Destination         string
	OriginFallback      bool
	DestinationFallback bool
}

// IsFallback reports whether at least one side fell back. Only the flags set by the pump
// count; place names may legitimately contain numbers.
func (n Names) IsFallback() bool {
	return n.OriginFallback || n.DestinationFallback
}

// State is the resolution state of a record.
type State int

const (
	// Unresolved records have never been claimed by the pump.
	Unresolved State = iota
	// Resolving records are part of the batch currently in flight.
	Resolving
	// Resolved records have place names for both sides.
	Resolved
	// Fallback records have at least one fallback side and may be retried once.
	Fallback
	// RetriedFallback records fell back again after their retry and stay that way.
	RetriedFallback
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Fallback:
		return "fallback"
	case RetriedFallback:
		return "retried-fallback"
	default:
		return "unknown"
	}
}
