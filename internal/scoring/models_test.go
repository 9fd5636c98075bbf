package scoring_test

import (
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeopt/chargeopt/internal/scoring"
	"github.com/chargeopt/chargeopt/internal/solar"
	"github.com/chargeopt/chargeopt/internal/tariff"
)

func solarEstimate(ghi float64) solar.Estimate {
	return solar.Estimate{GHI: ghi}
}

func filled(v float64) []float64 {
	out := make([]float64, scoring.NumFeatures)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestStandardScaler(t *testing.T) {
	mean := filled(1)
	scale := filled(2)
	scale[3] = 0 // treated as 1

	s, err := scoring.NewStandardScaler(mean, scale)
	require.NoError(t, err)

	var v scoring.FeatureVector
	for i := range v {
		v[i] = 5
	}
	out, err := s.Transform(v)
	require.NoError(t, err)
	require.Len(t, out, scoring.NumFeatures)

	assert.InDelta(t, 2.0, out[0], 1e-12)
	assert.InDelta(t, 4.0, out[3], 1e-12)

	// Inputs are not modified.
	assert.InDelta(t, 5.0, v[0], 1e-12)
}

func TestStandardScaler_Validation(t *testing.T) {
	_, err := scoring.NewStandardScaler([]float64{1}, filled(1))
	assert.ErrorIs(t, err, scoring.ErrDimension)
}

func TestLinearRegressor(t *testing.T) {
	coef := make([]float64, scoring.NumFeatures)
	coef[scoring.FeatureHour] = 0.5
	coef[scoring.FeatureGHI] = -0.25

	r, err := scoring.NewLinearRegressor(coef, 0.1)
	require.NoError(t, err)

	x := make([]float64, scoring.NumFeatures)
	x[scoring.FeatureHour] = 2
	x[scoring.FeatureGHI] = 4

	got, err := r.Predict(x)
	require.NoError(t, err)
	assert.InDelta(t, 0.1+1-1, got, 1e-12)

	_, err = r.Predict([]float64{1, 2})
	assert.ErrorIs(t, err, scoring.ErrDimension)

	_, err = scoring.NewLinearRegressor([]float64{1}, 0)
	assert.ErrorIs(t, err, scoring.ErrDimension)
}

func stumpEnsemble(t *testing.T) *scoring.TreeEnsemble {
	t.Helper()
	trees := []scoring.Tree{
		{Nodes: []scoring.TreeNode{
			{Feature: scoring.FeatureHour, Threshold: 12, Left: 1, Right: 2},
			{Leaf: true, Value: 0.1},
			{Leaf: true, Value: -0.1},
		}},
		{Nodes: []scoring.TreeNode{
			{Leaf: true, Value: 0.05},
		}},
	}
	e, err := scoring.NewTreeEnsemble(0.5, trees)
	require.NoError(t, err)
	return e
}

func TestTreeEnsemble_Predict(t *testing.T) {
	e := stumpEnsemble(t)

	x := make([]float64, scoring.NumFeatures)
	x[scoring.FeatureHour] = 12
	got, err := e.Predict(x)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, got, 1e-12)

	x[scoring.FeatureHour] = 13
	got, err = e.Predict(x)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, got, 1e-12)

	_, err = e.Predict(x[:3])
	assert.ErrorIs(t, err, scoring.ErrDimension)
}

func TestTreeEnsemble_Validation(t *testing.T) {
	tests := []struct {
		name  string
		trees []scoring.Tree
	}{
		{"no trees", nil},
		{"empty tree", []scoring.Tree{{}}},
		{"feature out of range", []scoring.Tree{{Nodes: []scoring.TreeNode{
			{Feature: 99, Left: 1, Right: 2}, {Leaf: true}, {Leaf: true},
		}}}},
		{"self loop", []scoring.Tree{{Nodes: []scoring.TreeNode{
			{Feature: 0, Left: 0, Right: 1}, {Leaf: true},
		}}}},
		{"child out of range", []scoring.Tree{{Nodes: []scoring.TreeNode{
			{Feature: 0, Left: 1, Right: 5}, {Leaf: true},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scoring.NewTreeEnsemble(0, tt.trees)
			assert.ErrorIs(t, err, scoring.ErrInvalidModel)
		})
	}
}

const scalerJSON = `{"kind":"standard_scaler",
 "mean":[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0],
 "scale":[1,1,1,1,1,1,1,1,1,1,1,1,1,1,1,1]}`

const ladwpJSON = `{"kind":"tree_ensemble","base_score":0.5,"trees":[
 {"nodes":[
  {"feature":0,"threshold":12,"left":1,"right":2},
  {"leaf":true,"value":0.2},
  {"leaf":true,"value":-0.2}
 ]}]}`

const sceJSON = `{"kind":"linear","intercept":0.3,
 "coef":[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}`

func TestLoadModelSet(t *testing.T) {
	fsys := fstest.MapFS{
		"scaler.json": {Data: []byte(scalerJSON)},
		"ladwp.json":  {Data: []byte(ladwpJSON)},
		"sce.json":    {Data: []byte(sceJSON)},
	}

	set, err := scoring.LoadModelSet(fsys, zerolog.Nop())
	require.NoError(t, err)
	assert.ElementsMatch(t, tariff.Utilities(), set.LoadedUtilities())

	s := scoring.NewScorer(scoring.ScorerConfig{Models: set, Logger: zerolog.Nop()})
	assert.InDelta(t, 0.7, s.Score(testTime, testWeather, tariff.UtilityLADWP), 1e-12)
	assert.InDelta(t, 0.3, s.Score(testTime, testWeather, tariff.UtilitySCE), 1e-12)
}

func TestLoadModelSet_MissingFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"scaler.json": {Data: []byte(scalerJSON)},
		"sce.json":    {Data: []byte(sceJSON)},
	}

	set, err := scoring.LoadModelSet(fsys, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []tariff.Utility{tariff.UtilitySCE}, set.LoadedUtilities())

	empty, err := scoring.LoadModelSet(fstest.MapFS{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, empty.LoadedUtilities())
}

func TestLoadModelSet_Malformed(t *testing.T) {
	fsys := fstest.MapFS{
		"scaler.json": {Data: []byte(`{"kind":"standard_scaler","mean":[1],"scale":[1]}`)},
		"ladwp.json":  {Data: []byte(`not json`)},
		"sce.json":    {Data: []byte(`{"kind":"svm"}`)},
	}

	set, err := scoring.LoadModelSet(fsys, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrDimension)
	assert.ErrorIs(t, err, scoring.ErrInvalidModel)
	assert.ErrorIs(t, err, scoring.ErrUnknownKind)
	assert.Empty(t, set.LoadedUtilities())
}

func TestLoadModelDir_Missing(t *testing.T) {
	set, err := scoring.LoadModelDir(t.TempDir()+"/nope", zerolog.Nop())
	assert.ErrorIs(t, err, scoring.ErrModelsNotFound)
	assert.NotNil(t, set)
	assert.Empty(t, set.LoadedUtilities())
}
