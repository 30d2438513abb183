package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
)

// DecisionTreeRegressor is a CART regressor minimizing squared error.
type DecisionTreeRegressor struct {
	model.StateManager
	params

	// Fitted state - Public for gob encoding
	Tree               *Tree
	FeatureImportances []float64
}

// NewDecisionTreeRegressor creates a regressor with squared_error criterion and unlimited depth.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{params: defaultParams("squared_error")}
	for _, opt := range opts {
		opt(&dt.params)
	}
	return dt
}

// Fit grows the tree on X (n_samples × n_features) and y (n_samples × 1).
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted is Fit with per-sample weights (bootstrap counts in a forest).
func (dt *DecisionTreeRegressor) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	if err := dt.validate("squared_error"); err != nil {
		return err
	}
	target, err := checkFitInput("DecisionTreeRegressor.Fit", X, y, sampleWeight)
	if err != nil {
		return err
	}

	rows, cols := X.Dims()
	indices, w := sampleIndices(rows, sampleWeight)

	b := newBuilder(&dt.params, X, w)
	b.y = target

	dt.Tree = b.grow(indices)
	dt.FeatureImportances = b.importances
	dt.SetFitted(cols, rows)
	return nil
}

// Predict returns the leaf mean per sample (n_samples × 1).
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := dt.CheckFeatures("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	buf := make([]float64, cols)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, dt.Tree.apply(rowOf(X, i, buf)).Value[0])
	}
	return out, nil
}

// PredictRow predicts a single sample without allocating a matrix.
func (dt *DecisionTreeRegressor) PredictRow(x []float64) float64 {
	return dt.Tree.apply(x).Value[0]
}

// Score returns the coefficient of determination R² on (X, y), or 0 when prediction fails.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	rows, _ := pred.Dims()
	mean := 0.0
	for i := 0; i < rows; i++ {
		mean += y.At(i, 0)
	}
	mean /= float64(rows)

	ssRes, ssTot := 0.0, 0.0
	for i := 0; i < rows; i++ {
		d := y.At(i, 0) - pred.At(i, 0)
		ssRes += d * d
		t := y.At(i, 0) - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// GetFeatureImportances returns normalized impurity-decrease importances.
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.FeatureImportances...)
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.NLeaves()
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return dt.getParams()
}

// SetParams updates hyperparameters by sklearn name.
func (dt *DecisionTreeRegressor) SetParams(values map[string]interface{}) error {
	return dt.setParams(values)
}

func (dt *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d)", dt.maxDepth)
}
