package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/core/parallel"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/sklearn/tree"
)

// RandomForestRegressor averages bagged regression trees.
type RandomForestRegressor struct {
	model.StateManager
	forestParams

	// Fitted state - Public for gob encoding
	Seed       uint64
	Estimators []*tree.DecisionTreeRegressor
}

// NewRandomForestRegressor creates a forest of 100 unlimited-depth trees.
//
// Example:
//
//	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(200), ensemble.WithRandomState(0))
//	err := rf.Fit(X, y)
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{forestParams: defaultForestParams()}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit grows every tree on its own bootstrap sample of (X, y).
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	if err := rf.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("RandomForestRegressor.Fit", rows, yRows, 0)
	}

	estimators := make([]*tree.DecisionTreeRegressor, rf.nEstimators)
	err := parallel.ForEach(rf.nEstimators, rf.nJobs, func(i int) error {
		rng := rf.treeStream(i)
		weights := rf.bootstrapWeights(rng, rows)
		dt := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(rf.maxDepth),
			tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
			tree.WithMaxFeatures(rf.maxFeatures),
			tree.WithRandomState(rng.Uint64()),
		)
		if err := dt.FitWeighted(X, y, weights); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		estimators[i] = dt
		return nil
	})
	if err != nil {
		return err
	}

	rf.Estimators = estimators
	rf.Seed = rf.randomState
	rf.SetFitted(cols, rows)
	return nil
}

// Predict returns the mean tree prediction per sample (n_samples × 1).
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := rf.CheckFeatures("RandomForestRegressor.Predict", X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, rf.PredictRow(row))
	}
	return out, nil
}

// PredictRow predicts a single sample.
func (rf *RandomForestRegressor) PredictRow(x []float64) float64 {
	sum := 0.0
	for _, dt := range rf.Estimators {
		sum += dt.PredictRow(x)
	}
	return sum / float64(len(rf.Estimators))
}

// GetFeatureImportances returns the mean of the per-tree importances.
func (rf *RandomForestRegressor) GetFeatureImportances() []float64 {
	return meanImportances(len(rf.Estimators), func(i int) []float64 {
		return rf.Estimators[i].FeatureImportances
	})
}

// GetParams returns the hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return rf.getParams()
}

func (rf *RandomForestRegressor) String() string {
	if rf.IsFitted() {
		return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, random_state=%d)", len(rf.Estimators), rf.Seed)
	}
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, random_state=%d)", rf.nEstimators, rf.randomState)
}

func meanImportances(n int, get func(i int) []float64) []float64 {
	if n == 0 {
		return nil
	}
	var out []float64
	for i := 0; i < n; i++ {
		imp := get(i)
		if out == nil {
			out = make([]float64, len(imp))
		}
		for j, v := range imp {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(n)
	}
	return out
}
