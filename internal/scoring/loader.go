package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/tariff"
)

// Model file kinds.
const (
	KindStandardScaler = "standard_scaler"
	KindLinear         = "linear"
	KindTreeEnsemble   = "tree_ensemble"
)

// ScalerFile is the file name of the shared scaler inside a models directory.
const ScalerFile = "scaler.json"

// modelFile is the on-disk representation of any model kind.
type modelFile struct {
	Kind string `json:"kind"`

	// standard_scaler
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`

	// linear
	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	// tree_ensemble
	BaseScore float64 `json:"base_score,omitempty"`
	Trees     []Tree  `json:"trees,omitempty"`
}

// RegressorFile returns the file name of the regressor for u.
func RegressorFile(u tariff.Utility) string {
	return u.Short() + ".json"
}

// LoadModelSet reads the scaler and per-utility regressors from fsys.
// Missing files are not an error: the returned set is simply incomplete and
// the scorer falls back to NeutralScore for what is missing. Malformed files
// are reported.
func LoadModelSet(fsys fs.FS, logger zerolog.Logger) (*ModelSet, error) {
	set := &ModelSet{Regressors: make(map[tariff.Utility]Regressor)}
	var errs []error

	scaler, err := loadScaler(fsys, ScalerFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn().Str("file", ScalerFile).Msg("scaler not found, scores will be neutral")
	case err != nil:
		errs = append(errs, err)
	default:
		set.Scaler = scaler
	}

	for _, u := range tariff.Utilities() {
		name := RegressorFile(u)
		reg, err := loadRegressor(fsys, name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn().Str("file", name).Str("utility", u.Short()).Msg("model not found")
		case err != nil:
			errs = append(errs, err)
		default:
			set.Regressors[u] = reg
		}
	}

	if len(set.LoadedUtilities()) > 0 {
		logger.Info().Int("models", len(set.Regressors)).Msg("desirability models loaded")
	}

	return set, errors.Join(errs...)
}

// LoadModelDir is LoadModelSet over a directory on disk. A missing directory
// yields an empty set and ErrModelsNotFound.
func LoadModelDir(dir string, logger zerolog.Logger) (*ModelSet, error) {
	if _, err := os.Stat(dir); err != nil {
		logger.Warn().Str("dir", dir).Msg("models directory not found, scores will be neutral")
		return &ModelSet{}, fmt.Errorf("%w: %s", ErrModelsNotFound, dir)
	}
	return LoadModelSet(os.DirFS(filepath.Clean(dir)), logger)
}

func readModelFile(fsys fs.FS, name string) (*modelFile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidModel, name, err)
	}
	return &mf, nil
}

func loadScaler(fsys fs.FS, name string) (Scaler, error) {
	mf, err := readModelFile(fsys, name)
	if err != nil {
		return nil, err
	}
	if mf.Kind != KindStandardScaler {
		return nil, fmt.Errorf("%w: %s: %q", ErrUnknownKind, name, mf.Kind)
	}
	s, err := NewStandardScaler(mf.Mean, mf.Scale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func loadRegressor(fsys fs.FS, name string) (Regressor, error) {
	mf, err := readModelFile(fsys, name)
	if err != nil {
		return nil, err
	}

	var reg Regressor
	switch mf.Kind {
	case KindLinear:
		reg, err = NewLinearRegressor(mf.Coef, mf.Intercept)
	case KindTreeEnsemble:
		reg, err = NewTreeEnsemble(mf.BaseScore, mf.Trees)
	default:
		return nil, fmt.Errorf("%w: %s: %q", ErrUnknownKind, name, mf.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return reg, nil
}
