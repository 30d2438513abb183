package errors

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// NumericalInstabilityError is returned when a computation produced NaN or Inf.
type NumericalInstabilityError struct {
	Operation string    // where the values were produced, e.g. "penetration_predict"
	Values    []float64 // offending values (at most 10 are collected)
	Iteration int       // iteration or row index, -1 when not applicable
}

func (e *NumericalInstabilityError) Error() string {
	shown := e.Values
	more := ""
	if len(shown) > 5 {
		shown, more = shown[:5], ", ..."
	}
	vals := make([]string, len(shown))
	for i, v := range shown {
		vals[i] = fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("weldsim: numerical instability detected in %s at iteration %d. Values: [%s%s]",
		e.Operation, e.Iteration, strings.Join(vals, ", "), more)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix for numerical instability.
// The row of the first offending value is reported as the iteration.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		var unstable []float64
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				unstable = append(unstable, v)
			}
		}
		if len(unstable) > 0 {
			return NewNumericalInstabilityError(operation, unstable, i)
		}
	}
	return nil
}

// ClipValue clamps value into [lo, hi].
func ClipValue(value, lo, hi float64) float64 {
	return math.Min(math.Max(value, lo), hi)
}
