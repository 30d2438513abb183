package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "weldsim: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "weldsim: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 8, 7, 1)

	want := "weldsim: Predict: dimension mismatch on axis 1 (features). Expected 8, got 7"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("StandardScaler", "Transform")

	want := "weldsim: StandardScaler: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestPipelineErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
		wantMsg  string
	}{
		{
			name:     "invalid input",
			err:      NewInvalidInputError("current", "abc", "not a number"),
			wantKind: KindInvalidInput,
			wantMsg:  "weldsim: invalid input for 'current': not a number (got: abc)",
		},
		{
			name:     "degenerate feature",
			err:      NewDegenerateFeatureError(3, "wire_feed_speed", 5),
			wantKind: KindDegenerateFeature,
			wantMsg:  "weldsim: feature wire_feed_speed has zero variance in training data (constant value 5)",
		},
		{
			name:     "degenerate feature without name",
			err:      NewDegenerateFeatureError(2, "", 1.5),
			wantKind: KindDegenerateFeature,
			wantMsg:  "weldsim: feature #2 has zero variance in training data (constant value 1.5)",
		},
		{
			name:     "insufficient training data",
			err:      NewInsufficientTrainingDataError(10, "defect target has a single class"),
			wantKind: KindInsufficientTrainingData,
			wantMsg:  "weldsim: insufficient training data (10 rows): defect target has a single class",
		},
		{
			name:     "prediction",
			err:      NewPredictionError("penetration", fmt.Errorf("boom")),
			wantKind: KindPrediction,
			wantMsg:  "weldsim: prediction failed in penetration: boom",
		},
		{
			name:     "unknown error is a prediction error",
			err:      fmt.Errorf("something else"),
			wantKind: KindPrediction,
			wantMsg:  "something else",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", got, tt.wantKind)
			}
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", tt.err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	base := NewInvalidInputError("voltage", true, "not a number")
	wrapped := Wrap(base, "building features")

	if got := KindOf(wrapped); got != KindInvalidInput {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindInvalidInput)
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}
}

func TestPredictionError_Unwrap(t *testing.T) {
	cause := NewDimensionError("Predict", 8, 3, 1)
	err := NewPredictionError("bead_width", cause)

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("PredictionError should unwrap to *DimensionError")
	}
	if dimErr.Got != 3 {
		t.Errorf("Got = %d, want 3", dimErr.Got)
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("LogisticRegression", 1000, "gradient norm above tolerance")

	want := "LogisticRegression failed to converge after 1000 iterations: gradient norm above tolerance"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarn_UsesZerologFuncWhenSet(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("roc_auc", "only one class present", 0.5))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "roc_auc") {
		t.Errorf("unexpected warning: %v", got[0])
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("ok", []float64{1, 2, 3}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := CheckNumericalStability("defect_proba", []float64{0.4, nanValue()}, 4)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Iteration != 4 {
		t.Errorf("Iteration = %d, want 4", numErr.Iteration)
	}

	m := mat2x2{1, 2, 3, inf()}
	err = CheckMatrix("scaled_features", m, 2, 2)
	if !As(err, &numErr) || numErr.Iteration != 1 || len(numErr.Values) != 1 {
		t.Fatalf("expected instability in row 1 only, got %v", err)
	}
}

type mat2x2 [4]float64

func (m mat2x2) At(i, j int) float64 { return m[i*2+j] }

func TestClipValue(t *testing.T) {
	for _, tc := range []struct{ in, want float64 }{{-0.2, 0}, {0.3, 0.3}, {1.7, 1}} {
		if got := ClipValue(tc.in, 0, 1); got != tc.want {
			t.Errorf("ClipValue(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
