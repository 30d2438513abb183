package tree

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// DecisionTreeClassifier is a CART classifier splitting on gini or entropy.
type DecisionTreeClassifier struct {
	model.StateManager
	params

	// Fitted state - Public for gob encoding
	Tree               *Tree
	ClassLabels        []int
	FeatureImportances []float64
}

// NewDecisionTreeClassifier creates a classifier with gini criterion and unlimited depth.
//
// Example:
//
//	dt := tree.NewDecisionTreeClassifier(tree.WithCriterion("entropy"), tree.WithMaxDepth(5))
//	err := dt.Fit(X, y)
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{params: defaultParams("gini")}
	for _, opt := range opts {
		opt(&dt.params)
	}
	return dt
}

// Fit grows the tree on X (n_samples × n_features) and integer labels y (n_samples × 1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted is Fit with per-sample weights. Rows with weight 0 do not reach
// any node, but their labels still count towards Classes().
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	if err := dt.validate("gini", "entropy", "log_loss"); err != nil {
		return err
	}
	target, err := checkFitInput("DecisionTreeClassifier.Fit", X, y, sampleWeight)
	if err != nil {
		return err
	}

	classes, encoded, err := encodeLabels(target)
	if err != nil {
		return err
	}

	rows, cols := X.Dims()
	indices, w := sampleIndices(rows, sampleWeight)

	b := newBuilder(&dt.params, X, w)
	b.yClass = encoded
	b.nClasses = len(classes)

	dt.Tree = b.grow(indices)
	dt.ClassLabels = classes
	dt.FeatureImportances = b.importances
	dt.SetFitted(cols, rows)
	return nil
}

// encodeLabels maps integer-valued labels to class indices in ascending label order.
func encodeLabels(y []float64) ([]int, []int, error) {
	seen := make(map[int]struct{})
	for _, v := range y {
		if v != math.Trunc(v) {
			return nil, nil, errors.NewValidationError("y", "class labels must be integers", v)
		}
		seen[int(v)] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	encoded := make([]int, len(y))
	for i, v := range y {
		encoded[i] = index[int(v)]
	}
	return classes, encoded, nil
}

// PredictProba returns class probabilities (n_samples × n_classes) in Classes() order.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := dt.CheckFeatures("DecisionTreeClassifier.PredictProba", X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	out := mat.NewDense(rows, len(dt.ClassLabels), nil)
	buf := make([]float64, cols)
	for i := 0; i < rows; i++ {
		out.SetRow(i, dt.Tree.apply(rowOf(X, i, buf)).Value)
	}
	return out, nil
}

// Predict returns the most probable class label per sample (n_samples × 1).
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, float64(dt.ClassLabels[argmax(mat.Row(nil, i, proba))]))
	}
	return out, nil
}

// Score returns the mean accuracy on (X, y), or 0 when prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	rows, _ := pred.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

// Classes returns the class labels seen during Fit in ascending order.
func (dt *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), dt.ClassLabels...)
}

// GetFeatureImportances returns normalized impurity-decrease importances.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.FeatureImportances...)
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.NLeaves()
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return dt.getParams()
}

// SetParams updates hyperparameters by sklearn name.
func (dt *DecisionTreeClassifier) SetParams(values map[string]interface{}) error {
	return dt.setParams(values)
}

func (dt *DecisionTreeClassifier) String() string {
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d)", dt.criterion, dt.maxDepth)
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
