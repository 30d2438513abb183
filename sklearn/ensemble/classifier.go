package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/core/parallel"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of bagged trees.
type RandomForestClassifier struct {
	model.StateManager
	forestParams

	// Fitted state - Public for gob encoding
	Seed        uint64
	Estimators  []*tree.DecisionTreeClassifier
	ClassLabels []int
}

// NewRandomForestClassifier creates a forest of 100 unlimited-depth gini trees.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{forestParams: defaultForestParams()}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit grows every tree on its own bootstrap sample of (X, y).
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if err := rf.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", rows, yRows, 0)
	}

	maxFeatures := rf.maxFeatures
	if maxFeatures == 0 {
		maxFeatures = sqrtFeatures(cols)
	}

	estimators := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err := parallel.ForEach(rf.nEstimators, rf.nJobs, func(i int) error {
		rng := rf.treeStream(i)
		weights := rf.bootstrapWeights(rng, rows)
		dt := tree.NewDecisionTreeClassifier(
			tree.WithMaxDepth(rf.maxDepth),
			tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
			tree.WithMaxFeatures(maxFeatures),
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

	// Every tree saw the full label column, so all share the same classes.
	rf.Estimators = estimators
	rf.Seed = rf.randomState
	rf.ClassLabels = estimators[0].Classes()
	rf.SetFitted(cols, rows)
	return nil
}

// PredictProba returns the mean tree probabilities (n_samples × n_classes).
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := rf.CheckFeatures("RandomForestClassifier.PredictProba", X); err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	out := mat.NewDense(rows, len(rf.ClassLabels), nil)
	for _, dt := range rf.Estimators {
		proba, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, proba)
	}
	out.Scale(1/float64(len(rf.Estimators)), out)
	return out, nil
}

// Predict returns the class with the highest mean probability (n_samples × 1).
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, cols := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(rf.ClassLabels[best]))
	}
	return out, nil
}

// Classes returns the class labels seen during Fit in ascending order.
func (rf *RandomForestClassifier) Classes() []int {
	return append([]int(nil), rf.ClassLabels...)
}

// GetFeatureImportances returns the mean of the per-tree importances.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return meanImportances(len(rf.Estimators), func(i int) []float64 {
		return rf.Estimators[i].FeatureImportances
	})
}

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return rf.getParams()
}

func (rf *RandomForestClassifier) String() string {
	if rf.IsFitted() {
		return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, random_state=%d)", len(rf.Estimators), rf.Seed)
	}
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, random_state=%d)", rf.nEstimators, rf.randomState)
}
