// Package scoring turns an hour's time, weather, solar and tariff context into
// a charging desirability score using pre-trained regression models.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/solar"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/weather"
)

// NeutralScore is returned whenever no model can produce a score.
const NeutralScore = 0.5

// Scaler normalizes a feature vector before prediction.
type Scaler interface {
	Transform(v FeatureVector) ([]float64, error)
}

// Regressor predicts a raw desirability score from normalized features.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// ModelSet is one scaler shared by a regressor per utility.
type ModelSet struct {
	Scaler     Scaler
	Regressors map[tariff.Utility]Regressor
}

// Loaded reports whether the set can score the given utility.
func (m *ModelSet) Loaded(u tariff.Utility) bool {
	if m == nil || m.Scaler == nil {
		return false
	}
	_, ok := m.Regressors[u]
	return ok
}

// LoadedUtilities returns the utilities the set can score.
func (m *ModelSet) LoadedUtilities() []tariff.Utility {
	var out []tariff.Utility
	for _, u := range tariff.Utilities() {
		if m.Loaded(u) {
			out = append(out, u)
		}
	}
	return out
}

// ScorerConfig holds the dependencies of a Scorer.
type ScorerConfig struct {
	Models   *ModelSet
	Solar    *solar.Estimator
	Schedule *tariff.Schedule
	Logger   zerolog.Logger
}

// Scorer computes desirability scores. It is safe for concurrent use as long
// as the models are.
type Scorer struct {
	models   *ModelSet
	solar    *solar.Estimator
	schedule *tariff.Schedule
	logger   zerolog.Logger
}

// NewScorer creates a scorer. Models may be nil.
func NewScorer(cfg ScorerConfig) *Scorer {
	est := cfg.Solar
	if est == nil {
		est = solar.NewEstimator(solar.DefaultConfig())
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = tariff.NewSchedule(tariff.DefaultRates())
	}
	return &Scorer{
		models:   cfg.Models,
		solar:    est,
		schedule: schedule,
		logger:   cfg.Logger,
	}
}

// Loaded reports whether a model is available for u.
func (s *Scorer) Loaded(u tariff.Utility) bool {
	return s.models.Loaded(u)
}

// Features builds the feature vector for hour t under weather w.
func (s *Scorer) Features(t time.Time, w weather.Snapshot) FeatureVector {
	weekend := tariff.IsWeekend(t)
	return BuildFeatures(t, w, s.solar.Estimate(t, w),
		s.schedule.Quote(t.Hour(), weekend, tariff.UtilityLADWP),
		s.schedule.Quote(t.Hour(), weekend, tariff.UtilitySCE),
	)
}

// Score returns the desirability of charging during hour t under weather w
// for utility u, in [0,1]. Missing models or any model failure yield
// NeutralScore.
func (s *Scorer) Score(t time.Time, w weather.Snapshot, u tariff.Utility) float64 {
	if !s.models.Loaded(u) {
		return NeutralScore
	}
	return s.ScoreFeatures(s.Features(t, w), u)
}

// ScoreFeatures scores a prebuilt vector.
func (s *Scorer) ScoreFeatures(v FeatureVector, u tariff.Utility) float64 {
	if !s.models.Loaded(u) {
		return NeutralScore
	}

	raw, err := s.predict(v, u)
	if err != nil {
		s.logger.Warn().Err(err).Str("utility", u.Short()).Msg("model prediction failed, using neutral score")
		return NeutralScore
	}
	if math.IsNaN(raw) {
		return NeutralScore
	}
	return math.Max(0, math.Min(1, raw))
}

func (s *Scorer) predict(v FeatureVector, u tariff.Utility) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrPrediction, r)
		}
	}()

	x, err := s.models.Scaler.Transform(v)
	if err != nil {
		return 0, fmt.Errorf("%w: transform: %w", ErrPrediction, err)
	}
	score, err = s.models.Regressors[u].Predict(x)
	if err != nil {
		return 0, fmt.Errorf("%w: predict: %w", ErrPrediction, err)
	}
	return score, nil
}
