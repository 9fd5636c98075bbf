// Package worker runs background jobs that keep provider caches warm.
package worker

import (
	"sort"
	"time"
)

// RefreshTarget is a named area whose points are refreshed together.
type RefreshTarget struct {
	Name string

	// Points are the coordinates to refresh.
	Points []Point

	// Priority orders refreshes (lower first).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// RefreshConfig holds configuration for the weather refresh job.
type RefreshConfig struct {
	// Targets to refresh. If empty, uses DefaultRefreshTargets.
	Targets []RefreshTarget

	// Interval between runs when started with Start. Default: 10 minutes
	Interval time.Duration

	// Concurrency is the number of concurrent point refreshes. Default: 3
	Concurrency int

	// Timeout bounds each point refresh. Default: 15 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:     DefaultRefreshTargets(),
		Interval:    10 * time.Minute,
		Concurrency: 3,
		Timeout:     15 * time.Second,
	}
}

// DefaultRefreshTargets covers the Los Angeles basin. The first point is the
// service's default site, so the optimizer's lookups hit a warm cache.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:     "Downtown Los Angeles",
			Priority: 1,
			Points:   []Point{{Lat: 34.0522, Lon: -118.2437}},
		},
		{
			Name:     "Westside",
			Priority: 2,
			Points: []Point{
				{Lat: 34.0195, Lon: -118.4912}, // Santa Monica
				{Lat: 33.9416, Lon: -118.4085}, // LAX
			},
		},
		{
			Name:     "Valley",
			Priority: 2,
			Points: []Point{
				{Lat: 34.1808, Lon: -118.3090}, // Burbank
				{Lat: 34.1867, Lon: -118.4487}, // Van Nuys
			},
		},
		{
			Name:     "San Gabriel Valley",
			Priority: 3,
			Points:   []Point{{Lat: 34.1478, Lon: -118.1445}}, // Pasadena
		},
		{
			Name:     "South Bay",
			Priority: 3,
			Points:   []Point{{Lat: 33.7701, Lon: -118.1937}}, // Long Beach
		},
	}
}

// withDefaults fills zero fields.
func (c RefreshConfig) withDefaults() RefreshConfig {
	d := DefaultRefreshConfig()
	if len(c.Targets) == 0 {
		c.Targets = d.Targets
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// AllPoints returns every point ordered by target priority.
func (c RefreshConfig) AllPoints() []Point {
	targets := make([]RefreshTarget, len(c.Targets))
	copy(targets, c.Targets)
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Priority < targets[j].Priority })

	var points []Point
	for _, target := range targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to refresh.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
