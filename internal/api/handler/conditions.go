package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/chargeopt/chargeopt/internal/api/models"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/solar"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/weather"
)

// CurrentWeather returns the weather now at a point. Implementations never
// fail; they degrade to a synthesized reading.
type CurrentWeather interface {
	Current(ctx context.Context, lat, lon float64) weather.Reading
}

// ConditionsConfig holds the dependencies of ConditionsHandler.
type ConditionsConfig struct {
	Weather  CurrentWeather
	Solar    *solar.Estimator
	Schedule *tariff.Schedule
	SiteLat  float64
	SiteLon  float64
	Location *time.Location
	Clock    func() time.Time
}

// ConditionsHandler serves current conditions and the tariff tables.
type ConditionsHandler struct {
	weather  CurrentWeather
	solar    *solar.Estimator
	schedule *tariff.Schedule
	lat, lon float64
	loc      *time.Location
	now      func() time.Time
}

// NewConditionsHandler creates a ConditionsHandler.
func NewConditionsHandler(cfg ConditionsConfig) *ConditionsHandler {
	h := &ConditionsHandler{
		weather:  cfg.Weather,
		solar:    cfg.Solar,
		schedule: cfg.Schedule,
		lat:      cfg.SiteLat,
		lon:      cfg.SiteLon,
		loc:      cfg.Location,
		now:      cfg.Clock,
	}
	if h.solar == nil {
		h.solar = solar.NewEstimator(solar.DefaultConfig())
	}
	if h.schedule == nil {
		h.schedule = tariff.NewSchedule(tariff.DefaultRates())
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// CurrentConditions handles GET /api/current-conditions.
func (h *ConditionsHandler) CurrentConditions(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)

	var snap weather.Snapshot
	if h.weather != nil {
		snap = h.weather.Current(r.Context(), h.lat, h.lon).Snapshot
	} else {
		snap = weather.NewSeasonalModel(nil).Snapshot(h.lat, h.lon, now)
	}
	est := h.solar.Estimate(now, snap)

	pricing := make(map[string]models.RateQuote, len(tariff.Utilities()))
	for _, u := range tariff.Utilities() {
		q := h.schedule.QuoteAt(now, u)
		pricing[string(u)] = models.RateQuote{Rate: q.Rate, Period: string(q.Period)}
	}

	response.OK(w, r, models.ConditionsResponse{
		Envelope: models.Success(now),
		Weather: models.Weather{
			Temperature: round(snap.TemperatureF, 1),
			Humidity:    snap.Humidity,
			WindSpeed:   round(snap.WindSpeedMph, 1),
			Clouds:      snap.CloudCover,
			Condition:   string(snap.Condition),
			Description: snap.Description,
			Source:      string(snap.Source),
			ObservedAt:  snap.ObservedAt,
		},
		Solar: models.Solar{
			GHI:             round(est.GHI, 2),
			PowerKW:         round(est.PowerKW, 3),
			HourlyEnergyKWh: round(est.HourlyEnergyKWh, 3),
		},
		Pricing: pricing,
	})
}

// Tariffs handles GET /api/tariffs: the 24-hour weekday and weekend tables
// of every utility.
func (h *ConditionsHandler) Tariffs(w http.ResponseWriter, r *http.Request) {
	resp := models.TariffsResponse{
		Envelope: models.Success(h.now()),
		Timezone: h.loc.String(),
	}
	for _, u := range tariff.Utilities() {
		resp.Utilities = append(resp.Utilities, models.UtilityTariff{
			Utility: string(u),
			Short:   u.Short(),
			Weekday: hourRates(h.schedule.Table(u, false)),
			Weekend: hourRates(h.schedule.Table(u, true)),
		})
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	response.OK(w, r, resp)
}

func hourRates(table [24]tariff.Quote) []models.HourRate {
	out := make([]models.HourRate, len(table))
	for h, q := range table {
		out[h] = models.HourRate{Hour: h, Rate: q.Rate, Period: string(q.Period)}
	}
	return out
}
