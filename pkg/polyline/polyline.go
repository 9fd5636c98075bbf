// Package polyline decodes and encodes Google encoded polylines (precision 5)
// and measures positions along them.
package polyline

import (
	"errors"
	"math"
)

// ErrTruncated is returned when an encoded polyline ends mid-value or
// carries a latitude without its longitude.
var ErrTruncated = errors.New("polyline: truncated input")

const (
	precision         = 1e5
	earthRadiusMeters = 6371000
)

// Coordinate is a point in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode parses an encoded polyline. An empty string yields no points.
func Decode(encoded string) ([]Coordinate, error) {
	var (
		coords   []Coordinate
		lat, lon int
	)
	for i := 0; i < len(encoded); {
		dLat, next, ok := readValue(encoded, i)
		if !ok {
			return nil, ErrTruncated
		}
		dLon, next, ok := readValue(encoded, next)
		if !ok {
			return nil, ErrTruncated
		}
		i = next

		lat += dLat
		lon += dLon
		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}
	return coords, nil
}

// readValue reads one zigzag varint starting at i.
func readValue(s string, i int) (value, next int, ok bool) {
	var result, shift int
	for i < len(s) {
		chunk := int(s[i]) - 63
		i++
		result |= (chunk & 0x1f) << shift
		shift += 5
		if chunk < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), i, true
			}
			return result >> 1, i, true
		}
	}
	return 0, i, false
}

// Encode renders coords as an encoded polyline.
func Encode(coords []Coordinate) string {
	buf := make([]byte, 0, len(coords)*8)
	var prevLat, prevLon int
	for _, c := range coords {
		lat := int(math.Round(c.Lat * precision))
		lon := int(math.Round(c.Lon * precision))
		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return string(buf)
}

func appendValue(buf []byte, v int) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		buf = append(buf, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}

// Length is the great-circle length of the path in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Haversine(coords[i-1], coords[i])
	}
	return total
}

// Along returns the point meters along the path, interpolating linearly
// inside the segment that contains it. Distances past either end clamp to
// that end. ok is false for an empty path.
func Along(coords []Coordinate, meters float64) (Coordinate, bool) {
	if len(coords) == 0 {
		return Coordinate{}, false
	}
	if meters <= 0 {
		return coords[0], true
	}

	walked := 0.0
	for i := 1; i < len(coords); i++ {
		seg := Haversine(coords[i-1], coords[i])
		if seg > 0 && walked+seg >= meters {
			f := (meters - walked) / seg
			a, b := coords[i-1], coords[i]
			return Coordinate{
				Lat: a.Lat + f*(b.Lat-a.Lat),
				Lon: a.Lon + f*(b.Lon-a.Lon),
			}, true
		}
		walked += seg
	}
	return coords[len(coords)-1], true
}

// Midpoint returns the point halfway along the path by distance.
func Midpoint(coords []Coordinate) (Coordinate, bool) {
	return Along(coords, Length(coords)/2)
}

// Haversine is the great-circle distance between a and b in meters.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
