// Package optimizer builds an hour-by-hour charging schedule for a session
// window by ranking hours on desirability and filling the best ones first.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/chargeopt/chargeopt/internal/scoring"
	"github.com/chargeopt/chargeopt/internal/solar"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/weather"
)

const tracerName = "github.com/chargeopt/chargeopt/internal/optimizer"

// Validation errors.
var (
	ErrInvalidWindow = errors.New("session end must be after session start")
	ErrInvalidEnergy = errors.New("energy needed must be positive")
	ErrWindowTooLong = errors.New("session window too long")
)

// ValidationError is a rejected request. It wraps one of the sentinel errors
// above, or tariff.ErrUnknownUtility, and names the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// WeatherSource supplies weather for a point and time. Implementations must
// always return a usable snapshot.
type WeatherSource interface {
	At(ctx context.Context, lat, lon float64, t time.Time) weather.Reading
}

// seasonalSource serves only the seasonal fallback.
type seasonalSource struct {
	model *weather.SeasonalModel
}

func (s seasonalSource) At(_ context.Context, lat, lon float64, t time.Time) weather.Reading {
	return weather.Reading{Snapshot: s.model.Snapshot(lat, lon, t), Fallback: true}
}

// Config holds the dependencies and limits of an Optimizer.
type Config struct {
	// Weather defaults to the seasonal model alone.
	Weather  WeatherSource
	Scorer   *scoring.Scorer
	Solar    *solar.Estimator
	Schedule *tariff.Schedule
	Logger   zerolog.Logger

	// SiteLat and SiteLon locate the charging site for weather lookups.
	// Default: downtown Los Angeles.
	SiteLat float64
	SiteLon float64

	// Location is the local time zone for hour boundaries and tariffs.
	// Default: America/Los_Angeles, or UTC if tzdata is unavailable.
	Location *time.Location

	// MaxPowerKW caps the energy charged in one hour (default: 50).
	MaxPowerKW float64

	// MaxWindow bounds the session length (default: 14 days).
	MaxWindow time.Duration

	// Concurrency bounds parallel per-hour evaluation (default: 8).
	Concurrency int
}

// Optimizer computes charging schedules. It is safe for concurrent use.
type Optimizer struct {
	weather     WeatherSource
	scorer      *scoring.Scorer
	solar       *solar.Estimator
	schedule    *tariff.Schedule
	logger      zerolog.Logger
	lat, lon    float64
	loc         *time.Location
	maxPowerKW  float64
	maxWindow   time.Duration
	concurrency int
	tracer      trace.Tracer
}

// DefaultLocation returns America/Los_Angeles, falling back to UTC.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.UTC
	}
	return loc
}

// New creates an optimizer.
func New(cfg Config) *Optimizer {
	est := cfg.Solar
	if est == nil {
		est = solar.NewEstimator(solar.DefaultConfig())
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = tariff.NewSchedule(tariff.DefaultRates())
	}
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.ScorerConfig{Solar: est, Schedule: schedule, Logger: cfg.Logger})
	}
	lat, lon := cfg.SiteLat, cfg.SiteLon
	if lat == 0 && lon == 0 {
		lat, lon = 34.0522, -118.2437
	}
	loc := cfg.Location
	if loc == nil {
		loc = DefaultLocation()
	}
	maxPower := cfg.MaxPowerKW
	if maxPower <= 0 {
		maxPower = 50
	}
	maxWindow := cfg.MaxWindow
	if maxWindow <= 0 {
		maxWindow = 14 * 24 * time.Hour
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	ws := cfg.Weather
	if ws == nil {
		ws = seasonalSource{model: weather.NewSeasonalModel(nil)}
	}

	return &Optimizer{
		weather:     ws,
		scorer:      scorer,
		solar:       est,
		schedule:    schedule,
		logger:      cfg.Logger,
		lat:         lat,
		lon:         lon,
		loc:         loc,
		maxPowerKW:  maxPower,
		maxWindow:   maxWindow,
		concurrency: concurrency,
		tracer:      otel.Tracer(tracerName),
	}
}

// Location returns the time zone hours are evaluated in.
func (o *Optimizer) Location() *time.Location {
	return o.loc
}

// MaxPowerKW returns the per-hour energy cap.
func (o *Optimizer) MaxPowerKW() float64 {
	return o.maxPowerKW
}

// Validate checks a request without computing anything.
func (o *Optimizer) Validate(req Request) error {
	if req.Start.IsZero() {
		return &ValidationError{Field: "session_start", Err: ErrInvalidWindow}
	}
	if !req.End.After(req.Start) {
		return &ValidationError{Field: "session_end", Err: ErrInvalidWindow}
	}
	if req.End.Sub(req.Start) > o.maxWindow {
		return &ValidationError{Field: "session_end", Err: fmt.Errorf("%w: max %s", ErrWindowTooLong, o.maxWindow)}
	}
	if math.IsNaN(req.EnergyKWh) || math.IsInf(req.EnergyKWh, 0) || req.EnergyKWh <= 0 {
		return &ValidationError{Field: "energy_needed_kwh", Err: ErrInvalidEnergy}
	}
	if req.Utility != tariff.UtilityLADWP && req.Utility != tariff.UtilitySCE {
		return &ValidationError{Field: "utility", Err: fmt.Errorf("%w: %q", tariff.ErrUnknownUtility, req.Utility)}
	}
	return nil
}

// Optimize ranks every hour of the window and greedily allocates the
// requested energy to the most desirable hours, at most MaxPowerKW per hour.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	if req.Utility == "" {
		req.Utility = tariff.UtilityLADWP
	}
	if err := o.Validate(req); err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "optimizer.Optimize", trace.WithAttributes(
		attribute.String("session.start", req.Start.Format(time.RFC3339)),
		attribute.String("session.end", req.End.Format(time.RFC3339)),
		attribute.Float64("session.energy_kwh", req.EnergyKWh),
		attribute.String("session.utility", req.Utility.Short()),
	))
	defer span.End()

	hours := o.candidateHours(req.Start, req.End)
	candidates := o.evaluate(ctx, hours, req.Utility)
	entries := o.allocate(candidates, req.EnergyKWh)
	summary := summarize(entries, req, len(candidates))

	span.SetAttributes(
		attribute.Int("session.candidate_hours", summary.CandidateHours),
		attribute.Int("session.charging_hours", summary.ChargingHours),
		attribute.Float64("session.shortfall_kwh", summary.ShortfallKWh),
	)

	o.logger.Debug().
		Int("candidate_hours", summary.CandidateHours).
		Int("charging_hours", summary.ChargingHours).
		Float64("total_cost", summary.TotalCost).
		Float64("shortfall_kwh", summary.ShortfallKWh).
		Str("utility", req.Utility.Short()).
		Msg("session optimized")

	return &Result{
		Entries:    entries,
		Summary:    summary,
		Candidates: candidates,
	}, nil
}

// candidateHours returns every hour boundary from start truncated to the
// local hour, up to but excluding end.
func (o *Optimizer) candidateHours(start, end time.Time) []time.Time {
	s := start.In(o.loc)
	first := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), 0, 0, 0, o.loc)
	// time.Date resolves DST gaps and overlaps to a single instant, which can
	// land an hour away from start.
	if first.After(start) {
		first = first.Add(-time.Hour)
	}
	if start.Sub(first) >= time.Hour {
		first = first.Add(time.Hour)
	}

	var hours []time.Time
	for h := first; h.Before(end); h = h.Add(time.Hour) {
		hours = append(hours, h)
	}
	return hours
}

// evaluate scores each hour concurrently. Results land at the hour's index so
// the output order never depends on scheduling.
func (o *Optimizer) evaluate(ctx context.Context, hours []time.Time, u tariff.Utility) []Candidate {
	candidates := make([]Candidate, len(hours))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, h := range hours {
		g.Go(func() error {
			candidates[i] = o.evaluateHour(ctx, h, u)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // evaluateHour never fails

	return candidates
}

func (o *Optimizer) evaluateHour(ctx context.Context, h time.Time, u tariff.Utility) Candidate {
	w := o.weather.At(ctx, o.lat, o.lon, h).Snapshot

	est := o.solar.Estimate(h, w)
	quote := o.schedule.QuoteAt(h, u)

	return Candidate{
		Time:          h,
		Score:         o.scorer.Score(h, w, u),
		Rate:          quote.Rate,
		Period:        quote.Period,
		SolarKW:       est.PowerKW,
		TemperatureF:  w.TemperatureF,
		WeatherSource: w.Source,
	}
}

// allocate fills hours in descending score order, then returns the entries
// in chronological order.
func (o *Optimizer) allocate(candidates []Candidate, energy float64) []Entry {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	entries := make([]Entry, 0, len(ranked))
	remaining := energy
	for _, c := range ranked {
		if remaining <= 0 {
			break
		}
		kwh := math.Min(remaining, o.maxPowerKW)
		entries = append(entries, Entry{
			Time:             c.Time,
			Hour:             c.Time.Hour(),
			EnergyKWh:        kwh,
			Cost:             kwh * c.Rate,
			Rate:             c.Rate,
			Period:           c.Period,
			Score:            c.Score,
			SolarAvailableKW: c.SolarKW,
			SolarOffsetKWh:   math.Min(kwh, c.SolarKW),
		})
		remaining -= kwh
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries
}

func summarize(entries []Entry, req Request, candidateHours int) Summary {
	s := Summary{
		TotalEnergyKWh: req.EnergyKWh,
		ChargingHours:  len(entries),
		CandidateHours: candidateHours,
		Utility:        req.Utility,
	}
	for _, e := range entries {
		s.AllocatedEnergyKWh += e.EnergyKWh
		s.TotalCost += e.Cost
		s.SolarOffsetKWh += e.SolarOffsetKWh
	}

	s.ShortfallKWh = math.Max(0, req.EnergyKWh-s.AllocatedEnergyKWh)
	// Tolerate float residue from repeated subtraction.
	if s.ShortfallKWh < 1e-9 {
		s.ShortfallKWh = 0
	}
	s.Satisfied = s.ShortfallKWh == 0

	if req.EnergyKWh > 0 {
		s.AverageRate = s.TotalCost / req.EnergyKWh
		s.SolarPercentage = 100 * s.SolarOffsetKWh / req.EnergyKWh
	}
	return s
}
