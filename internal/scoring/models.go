package scoring

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model errors.
var (
	ErrPrediction     = errors.New("prediction failed")
	ErrDimension      = errors.New("feature dimension mismatch")
	ErrInvalidModel   = errors.New("invalid model")
	ErrUnknownKind    = errors.New("unknown model kind")
	ErrModelsNotFound = errors.New("models not found")
)

// StandardScaler applies (x - mean) / scale per feature.
type StandardScaler struct {
	mean  *mat.VecDense
	scale *mat.VecDense
}

// NewStandardScaler validates the parameters and builds a scaler.
// Zero scales are treated as 1, matching the usual export convention.
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != NumFeatures || len(scale) != NumFeatures {
		return nil, fmt.Errorf("%w: scaler wants %d features, got mean=%d scale=%d",
			ErrDimension, NumFeatures, len(mean), len(scale))
	}
	if floats.HasNaN(mean) || floats.HasNaN(scale) {
		return nil, fmt.Errorf("%w: scaler contains NaN", ErrInvalidModel)
	}

	s := make([]float64, len(scale))
	copy(s, scale)
	for i, v := range s {
		if v == 0 {
			s[i] = 1
		}
	}
	m := make([]float64, len(mean))
	copy(m, mean)

	return &StandardScaler{
		mean:  mat.NewVecDense(NumFeatures, m),
		scale: mat.NewVecDense(NumFeatures, s),
	}, nil
}

// Transform implements Scaler.
func (s *StandardScaler) Transform(v FeatureVector) ([]float64, error) {
	x := mat.NewVecDense(NumFeatures, v.Slice())
	x.SubVec(x, s.mean)
	x.DivElemVec(x, s.scale)
	return x.RawVector().Data, nil
}

// LinearRegressor predicts intercept + coef·x.
type LinearRegressor struct {
	coef      *mat.VecDense
	intercept float64
}

// NewLinearRegressor builds a linear model over NumFeatures inputs.
func NewLinearRegressor(coef []float64, intercept float64) (*LinearRegressor, error) {
	if len(coef) != NumFeatures {
		return nil, fmt.Errorf("%w: linear model wants %d coefficients, got %d",
			ErrDimension, NumFeatures, len(coef))
	}
	c := make([]float64, len(coef))
	copy(c, coef)
	return &LinearRegressor{coef: mat.NewVecDense(len(c), c), intercept: intercept}, nil
}

// Predict implements Regressor.
func (r *LinearRegressor) Predict(x []float64) (float64, error) {
	if len(x) != r.coef.Len() {
		return 0, fmt.Errorf("%w: got %d inputs, want %d", ErrDimension, len(x), r.coef.Len())
	}
	return r.intercept + mat.Dot(r.coef, mat.NewVecDense(len(x), x)), nil
}

// TreeNode is one node of a regression tree in flat array form. Leaves carry
// Value; internal nodes route to Left when x[Feature] <= Threshold.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a regression tree whose root is Nodes[0].
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeEnsemble sums the leaf values of boosted trees on top of a base score.
type TreeEnsemble struct {
	baseScore float64
	trees     []Tree
}

// NewTreeEnsemble validates node indexes so prediction cannot loop or index
// out of range.
func NewTreeEnsemble(baseScore float64, trees []Tree) (*TreeEnsemble, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: ensemble has no trees", ErrInvalidModel)
	}
	for ti, tree := range trees {
		n := len(tree.Nodes)
		if n == 0 {
			return nil, fmt.Errorf("%w: tree %d is empty", ErrInvalidModel, ti)
		}
		for ni, node := range tree.Nodes {
			if node.Leaf {
				continue
			}
			if node.Feature < 0 || node.Feature >= NumFeatures {
				return nil, fmt.Errorf("%w: tree %d node %d: feature %d out of range",
					ErrInvalidModel, ti, ni, node.Feature)
			}
			// Children must come after their parent, which rules out cycles.
			if node.Left <= ni || node.Left >= n || node.Right <= ni || node.Right >= n {
				return nil, fmt.Errorf("%w: tree %d node %d: bad child index", ErrInvalidModel, ti, ni)
			}
		}
	}
	return &TreeEnsemble{baseScore: baseScore, trees: trees}, nil
}

// Predict implements Regressor.
func (e *TreeEnsemble) Predict(x []float64) (float64, error) {
	if len(x) != NumFeatures {
		return 0, fmt.Errorf("%w: got %d inputs, want %d", ErrDimension, len(x), NumFeatures)
	}

	leaves := make([]float64, len(e.trees))
	for i, tree := range e.trees {
		idx := 0
		for {
			node := tree.Nodes[idx]
			if node.Leaf {
				leaves[i] = node.Value
				break
			}
			if x[node.Feature] <= node.Threshold {
				idx = node.Left
			} else {
				idx = node.Right
			}
		}
	}
	return e.baseScore + floats.Sum(leaves), nil
}
