// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package coord holds the coordinate type shared by the geocoders, the record sources and
// the resolver, together with the cache key and fallback label derived from it.
package coord

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DefaultPrecision is the number of decimals kept for cache keys and fallback labels
// (0.0001 degrees ≈ 11 m)
const DefaultPrecision = 4

// fallbackPattern matches a whole "number, number" label as produced by Fallback
var fallbackPattern = regexp.MustCompile(`^-?\d+\.\d+,\s*-?\d+\.\d+$`)

// Coordinate represents a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// FromPoint converts an orb.Point (lon, lat order) into a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

// Point returns the coordinate as orb.Point.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Valid reports whether both values are finite and within the EPSG:4326 bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// IsZero reports whether the coordinate is the null island placeholder some backends
// store for missing locations.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	return geo.Distance(a.Point(), b.Point())
}

// Key returns the cache key of the coordinate for the given precision. Coordinates that
// round to the same key are considered the same place.
func Key(c Coordinate, precision int) string {
	return formatRounded(c.Lat, precision) + "," + formatRounded(c.Lon, precision)
}

// Fallback returns the displayable coordinate label used when no place name could be
// resolved, e.g. "41.1235, 16.5432".
func Fallback(c Coordinate) string {
	return formatRounded(c.Lat, DefaultPrecision) + ", " + formatRounded(c.Lon, DefaultPrecision)
}

// IsFallback reports whether s looks like a label produced by Fallback.
func IsFallback(s string) bool {
	return s != "" && fallbackPattern.MatchString(s)
}

// Round rounds val half away from zero to the given number of decimals. Rounding works on
// the shortest decimal representation of val, so 41.12345 rounds to 41.1235 even though
// its binary value is slightly below the midpoint.
func Round(val float64, precision int) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) || precision < 0 {
		return val
	}
	digits, ok := roundDigits(val, precision)
	if !ok {
		return val
	}
	rounded, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return val
	}
	return rounded
}

func formatRounded(val float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	digits, ok := roundDigits(val, precision)
	if !ok {
		return strconv.FormatFloat(val, 'f', precision, 64)
	}
	return digits
}

// roundDigits rounds the decimal string of val and returns it with exactly precision
// fractional digits.
func roundDigits(val float64, precision int) (string, bool) {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return "", false
	}
	neg := val < 0
	str := strconv.FormatFloat(math.Abs(val), 'f', -1, 64)
	intPart, frac, _ := strings.Cut(str, ".")

	if len(frac) <= precision {
		frac += strings.Repeat("0", precision-len(frac))
		return sign(neg, intPart, frac), true
	}

	roundUp := frac[precision] >= '5'
	num := []byte(intPart + frac[:precision])
	if roundUp {
		i := len(num) - 1
		for ; i >= 0; i-- {
			if num[i] == '9' {
				num[i] = '0'
				continue
			}
			num[i]++
			break
		}
		if i < 0 {
			num = append([]byte{'1'}, num...)
		}
	}
	split := len(num) - precision
	return sign(neg, string(num[:split]), string(num[split:])), true
}

func sign(neg bool, intPart, frac string) string {
	out := intPart
	if frac != "" {
		out += "." + frac
	}
	if neg && strings.Trim(out, "0.") != "" {
		out = "-" + out
	}
	return out
}
