// Package linear_model provides logistic regression for binary and
// one-vs-rest multiclass classification.
package linear_model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// LogisticRegression implements L2-regularized logistic regression trained by
// full-batch gradient descent with a decaying step size.
type LogisticRegression struct {
	model.StateManager

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance on the largest gradient component

	// Fitted state - Public for gob encoding
	Coef        [][]float64 // one row per binary problem (1 for binary, n_classes for OVR)
	Intercepts  []float64
	ClassLabels []int
	NIter       []int // iterations used per binary problem
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

func (lr *LogisticRegression) validate() error {
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "only 'l2' and 'none' are supported", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be >= 1", lr.maxIter)
	}
	return nil
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("LogisticRegression.Fit", X, nSamples, nFeatures); err != nil {
		return err
	}

	classes := extractClasses(y)
	if len(classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("needs samples of at least 2 classes, got %d", len(classes)))
	}

	// Binary problems: one for two classes, one per class otherwise (one-vs-rest)
	targets := classes[1:]
	if len(classes) > 2 {
		targets = classes
	}

	coef := make([][]float64, len(targets))
	intercepts := make([]float64, len(targets))
	nIter := make([]int, len(targets))
	for k, positive := range targets {
		yBinary := make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			if int(y.At(i, 0)) == positive {
				yBinary[i] = 1
			}
		}
		coef[k], intercepts[k], nIter[k] = lr.fitBinary(X, yBinary)
		if err := errors.CheckNumericalStability("LogisticRegression.Fit", coef[k], nIter[k]); err != nil {
			return err
		}
	}

	lr.Coef = coef
	lr.Intercepts = intercepts
	lr.ClassLabels = classes
	lr.NIter = nIter
	lr.SetFitted(nFeatures, nSamples)
	return nil
}

// extractClasses identifies unique class labels in ascending order
func extractClasses(y mat.Matrix) []int {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes
}

// fitBinary minimizes the mean log-loss plus ||w||²/(2·C·n) for 0/1 targets.
func (lr *LogisticRegression) fitBinary(X mat.Matrix, yBinary []float64) ([]float64, float64, int) {
	nSamples, nFeatures := X.Dims()
	weights := make([]float64, nFeatures)
	intercept := 0.0

	lambda := 0.0
	if lr.penalty == "l2" {
		lambda = 1.0 / (lr.C * float64(nSamples))
	}

	const baseLearningRate = 1.0
	gradWeights := make([]float64, nFeatures)
	iter := 0
	converged := false
	for iter < lr.maxIter {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - yBinary[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		maxGrad := 0.0
		for j := range gradWeights {
			gradWeights[j] = gradWeights[j]/float64(nSamples) + lambda*weights[j]
			maxGrad = math.Max(maxGrad, math.Abs(gradWeights[j]))
		}
		gradIntercept /= float64(nSamples)
		if lr.fitIntercept {
			maxGrad = math.Max(maxGrad, math.Abs(gradIntercept))
		}

		iter++
		if maxGrad < lr.tol {
			converged = true
			break
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter-1))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			intercept -= learningRate * gradIntercept
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", iter,
			"gradient descent did not reach tol; increase max_iter or scale the data"))
	}
	return weights, intercept, iter
}

// decision returns the linear score of problem k for row x.
func (lr *LogisticRegression) decision(k int, x []float64) float64 {
	z := lr.Intercepts[k]
	for j, w := range lr.Coef[k] {
		z += x[j] * w
	}
	return z
}

// PredictProba returns class probabilities (n_samples × n_classes) in Classes() order.
// One-vs-rest scores are normalized to sum to one.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}
	if err := lr.CheckFeatures("LogisticRegression.PredictProba", X); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	nClasses := len(lr.ClassLabels)
	out := mat.NewDense(nSamples, nClasses, nil)
	row := make([]float64, nFeatures)

	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		if nClasses == 2 {
			p := sigmoid(lr.decision(0, row))
			out.Set(i, 0, 1-p)
			out.Set(i, 1, p)
			continue
		}

		sum := 0.0
		for k := 0; k < nClasses; k++ {
			p := sigmoid(lr.decision(k, row))
			out.Set(i, k, p)
			sum += p
		}
		for k := 0; k < nClasses; k++ {
			out.Set(i, k, out.At(i, k)/sum)
		}
	}
	return out, nil
}

// Predict returns the most probable class label per sample (n_samples × 1).
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, nClasses := proba.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for k := 1; k < nClasses; k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, float64(lr.ClassLabels[best]))
	}
	return predictions, nil
}

// Score returns the mean accuracy, or 0 when prediction fails.
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0
	}

	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Classes returns the class labels seen during Fit in ascending order.
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.ClassLabels...)
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(penalty=%s, C=%g, max_iter=%d)", lr.penalty, lr.C, lr.maxIter)
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}
