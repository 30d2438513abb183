package tree

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// checkFitInput validates X, y and optional sample weights and returns y as a slice.
func checkFitInput(op string, X, y mat.Matrix, sampleWeight []float64) ([]float64, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewValidationError("y", "must be a single column", yCols)
	}
	if err := errors.CheckMatrix(op, X, rows, cols); err != nil {
		return nil, err
	}
	target := mat.Col(nil, 0, y)
	if err := errors.CheckNumericalStability(op, target, -1); err != nil {
		return nil, err
	}

	if sampleWeight != nil {
		if len(sampleWeight) != rows {
			return nil, errors.NewDimensionError(op+" sample_weight", rows, len(sampleWeight), 0)
		}
		positive := false
		for _, w := range sampleWeight {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, errors.NewValidationError("sample_weight", "must be finite and non-negative", w)
			}
			if w > 0 {
				positive = true
			}
		}
		if !positive {
			return nil, errors.NewValidationError("sample_weight", "at least one weight must be positive", 0)
		}
	}
	return target, nil
}
