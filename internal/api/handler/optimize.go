package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/api/models"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/optimizer"
	"github.com/chargeopt/chargeopt/internal/tariff"
)

// SessionOptimizer schedules a charging session.
type SessionOptimizer interface {
	Optimize(ctx context.Context, req optimizer.Request) (*optimizer.Result, error)
	Location() *time.Location
}

// OptimizeHandler handles session optimization.
type OptimizeHandler struct {
	optimizer SessionOptimizer
	logger    zerolog.Logger
	debug     bool
	now       func() time.Time
}

// NewOptimizeHandler creates an OptimizeHandler. debug exposes internal
// error details in 500 responses.
func NewOptimizeHandler(opt SessionOptimizer, logger zerolog.Logger, debug bool) *OptimizeHandler {
	return &OptimizeHandler{optimizer: opt, logger: logger, debug: debug, now: time.Now}
}

// OptimizeSession handles POST /api/optimize-session.
func (h *OptimizeHandler) OptimizeSession(w http.ResponseWriter, r *http.Request) {
	var input models.OptimizeRequest
	if !response.Decode(w, r, &input) {
		return
	}

	loc := h.optimizer.Location()
	var fieldErrs []models.FieldError

	start, err := parseTime(input.SessionStart, loc)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "session_start", Message: err.Error()})
	}
	end, err := parseTime(input.SessionEnd, loc)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "session_end", Message: err.Error()})
	}
	if input.EnergyNeededKWh == nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "energy_needed_kwh", Message: "required"})
	}

	utility := tariff.UtilityLADWP
	if input.Utility != "" {
		if utility, err = tariff.ParseUtility(input.Utility); err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "utility", Message: "expected ladwp or sce"})
		}
	}

	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid optimization request", fieldErrs)
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), optimizer.Request{
		Start:     start,
		End:       end,
		EnergyKWh: *input.EnergyNeededKWh,
		Utility:   utility,
	})
	if err != nil {
		var verr *optimizer.ValidationError
		if errors.As(err, &verr) {
			response.FieldInvalid(w, r, verr.Field, verr.Err.Error())
			return
		}
		serverError(w, r, h.logger, h.debug, err)
		return
	}

	response.OK(w, r, toOptimizeResponse(result, loc, h.now()))
}

func toOptimizeResponse(res *optimizer.Result, loc *time.Location, now time.Time) models.OptimizeResponse {
	s := res.Summary
	out := models.OptimizeResponse{
		Envelope: models.Success(now),
		Summary: models.OptimizationSummary{
			TotalEnergyKWh:     round(s.TotalEnergyKWh, 3),
			AllocatedEnergyKWh: round(s.AllocatedEnergyKWh, 3),
			ShortfallKWh:       round(s.ShortfallKWh, 3),
			Satisfied:          s.Satisfied,
			TotalCost:          round(s.TotalCost, 2),
			AverageRate:        round(s.AverageRate, 4),
			SolarOffsetKWh:     round(s.SolarOffsetKWh, 3),
			SolarPercentage:    round(s.SolarPercentage, 1),
			ChargingHours:      s.ChargingHours,
			CandidateHours:     s.CandidateHours,
			Utility:            string(s.Utility),
		},
		Schedule: make([]models.ScheduleEntry, 0, len(res.Entries)),
	}
	for _, e := range res.Entries {
		out.Schedule = append(out.Schedule, models.ScheduleEntry{
			Datetime:          e.Time.In(loc).Format(time.RFC3339),
			Hour:              e.Hour,
			EnergyKWh:         round(e.EnergyKWh, 3),
			ChargingCost:      round(e.Cost, 4),
			UtilityRate:       e.Rate,
			Period:            string(e.Period),
			OptimizationScore: round(e.Score, 4),
			SolarAvailableKW:  round(e.SolarAvailableKW, 3),
			SolarOffset:       round(e.SolarOffsetKWh, 3),
		})
	}
	return out
}
