package station

import (
	"math"
	"sort"
)

// Locator answers proximity queries over a fixed station list. It never
// changes after construction and is safe for concurrent use.
type Locator struct {
	stations []Station
	summary  Summary
}

// NewLocator copies stations into a new locator.
func NewLocator(stations []Station) *Locator {
	s := make([]Station, len(stations))
	copy(s, stations)
	return &Locator{stations: s, summary: Summarize(s)}
}

// Len returns the number of stations.
func (l *Locator) Len() int {
	return len(l.stations)
}

// Summary returns dataset statistics.
func (l *Locator) Summary() Summary {
	out := l.summary
	out.Networks = make(map[string]int, len(l.summary.Networks))
	for k, v := range l.summary.Networks {
		out.Networks[k] = v
	}
	return out
}

// Distance returns the planar approximation in miles between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dlat, dlon := lat1-lat2, lon1-lon2
	return math.Sqrt(dlat*dlat+dlon*dlon) * MilesPerDegree
}

// Nearby returns stations within radiusMiles (inclusive) of the point,
// closest first, at most limit of them. A non-positive radius takes the
// default and limit is clamped to [1, MaxLimit]. Equal distances keep
// dataset order.
func (l *Locator) Nearby(lat, lon, radiusMiles float64, limit int) []Match {
	if radiusMiles <= 0 {
		radiusMiles = DefaultRadiusMiles
	}
	limit = ClampLimit(limit)

	var matches []Match
	for _, st := range l.stations {
		d := Distance(st.Lat, st.Lon, lat, lon)
		if d <= radiusMiles {
			matches = append(matches, Match{Station: st, DistanceMiles: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceMiles < matches[j].DistanceMiles
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ClampLimit bounds a result count to [1, MaxLimit].
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
